// Package analyzer derives positioning views from a contract archive:
// latest holdings per category, week-over-week shifts and multi-week
// comparisons.
package analyzer

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"cotflow/logger"
	"cotflow/models"
)

// Analyzer answers questions about one contract's observation series.
type Analyzer struct {
	series models.InstrumentSeries
	log    *logger.Log
}

func New(series models.InstrumentSeries) *Analyzer {
	return &Analyzer{series: series, log: logger.GetLogger()}
}

// LatestPositions returns the rows of the newest report date for one
// position type, largest net long first.
func (a *Analyzer) LatestPositions(pt models.PositionType) models.InstrumentSeries {
	latest, ok := a.series.LatestDate()
	if !ok {
		return nil
	}

	rows := a.series.OnDate(latest).FilterPositionType(pt)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Net > rows[j].Net
	})
	return rows
}

// WeeklyChange returns the newest rows for one position type ordered by the
// reported week-over-week net change, largest increase first. The changes
// come straight from the report; nothing is recomputed across weeks.
func (a *Analyzer) WeeklyChange(pt models.PositionType) models.InstrumentSeries {
	latest, ok := a.series.LatestDate()
	if !ok {
		return nil
	}

	rows := a.series.OnDate(latest).FilterPositionType(pt)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].NetChange > rows[j].NetChange
	})
	return rows
}

// CategorySummary is one category's slice of the latest report.
type CategorySummary struct {
	Category    models.Category
	Name        string
	Long        float64
	Short       float64
	Net         float64
	LongChange  float64
	ShortChange float64
	NetChange   float64
	LongPct     float64
	ShortPct    float64
}

// Summary is the overall state of the latest report: market totals plus the
// per-category breakdown, net long first.
type Summary struct {
	ReportDate   models.Date
	ContractCode string
	TotalLong    float64
	TotalShort   float64
	NetPosition  float64
	Categories   []CategorySummary
}

// Summary condenses the newest total-position rows. The second return is
// false when the series is empty.
func (a *Analyzer) Summary() (Summary, bool) {
	latest := a.LatestPositions(models.PositionTotal)
	if len(latest) == 0 {
		return Summary{}, false
	}

	s := Summary{
		ReportDate:   latest[0].ReportDate,
		ContractCode: latest[0].ContractCode,
		Categories:   make([]CategorySummary, 0, len(latest)),
	}
	for _, obs := range latest {
		s.TotalLong += obs.Long
		s.TotalShort += obs.Short
		s.NetPosition += obs.Net
		s.Categories = append(s.Categories, CategorySummary{
			Category:    obs.Category,
			Name:        obs.Category.DisplayName(),
			Long:        obs.Long,
			Short:       obs.Short,
			Net:         obs.Net,
			LongChange:  obs.LongChange,
			ShortChange: obs.ShortChange,
			NetChange:   obs.NetChange,
			LongPct:     obs.LongPct,
			ShortPct:    obs.ShortPct,
		})
	}
	return s, true
}

// HistoricalSeries returns the total-position rows of one category over the
// newest weeks, oldest first.
func (a *Analyzer) HistoricalSeries(category models.Category, weeks int) models.InstrumentSeries {
	rows := a.series.FilterCategory(category).FilterPositionType(models.PositionTotal)

	dates := rows.DistinctDates()
	if len(dates) > weeks {
		dates = dates[:weeks]
	}
	rows = rows.OnDates(dates)
	rows.SortOldestFirst()
	return rows
}

// PeriodComparison sets one category's current total position against the
// same position N weeks earlier.
type PeriodComparison struct {
	Category       models.Category
	CurrentLong    float64
	CurrentShort   float64
	CurrentNet     float64
	PastLong       float64
	PastShort      float64
	PastNet        float64
	LongChange     float64
	ShortChange    float64
	NetChange      float64
	LongPctChange  float64
	ShortPctChange float64
	NetPctChange   float64
}

// ComparePeriods compares the newest total positions with those weeksBack
// report dates earlier. With fewer weeks on file the lookback clamps to the
// oldest available date. The second return is false when the series is empty.
// Categories missing on either date are left out.
func (a *Analyzer) ComparePeriods(weeksBack int) ([]PeriodComparison, bool) {
	dates := a.series.DistinctDates()
	if len(dates) == 0 {
		return nil, false
	}

	if len(dates) < weeksBack+1 {
		a.log.WithComponent("analyzer").WithFields(logger.Fields{
			"weeks_available": len(dates),
			"weeks_back":      weeksBack,
		}).Debug("fewer weeks on file than comparison window")
		weeksBack = len(dates) - 1
	}

	currentDate := dates[0]
	pastDate := dates[weeksBack]

	current := indexByCategory(a.series.OnDate(currentDate).FilterPositionType(models.PositionTotal))
	past := indexByCategory(a.series.OnDate(pastDate).FilterPositionType(models.PositionTotal))

	var rows []PeriodComparison
	for _, cat := range models.Categories {
		cur, okCur := current[cat]
		old, okOld := past[cat]
		if !okCur || !okOld {
			continue
		}
		rows = append(rows, PeriodComparison{
			Category:       cat,
			CurrentLong:    cur.Long,
			CurrentShort:   cur.Short,
			CurrentNet:     cur.Net,
			PastLong:       old.Long,
			PastShort:      old.Short,
			PastNet:        old.Net,
			LongChange:     cur.Long - old.Long,
			ShortChange:    cur.Short - old.Short,
			NetChange:      cur.Net - old.Net,
			LongPctChange:  pctChange(cur.Long-old.Long, old.Long),
			ShortPctChange: pctChange(cur.Short-old.Short, old.Short),
			NetPctChange:   pctChange(cur.Net-old.Net, math.Abs(old.Net)),
		})
	}
	return rows, true
}

func indexByCategory(rows models.InstrumentSeries) map[models.Category]models.Observation {
	byCat := make(map[models.Category]models.Observation, len(rows))
	for _, obs := range rows {
		byCat[obs.Category] = obs
	}
	return byCat
}

// pctChange is delta over base in percent, rounded to two decimals. A zero
// base yields zero rather than a blowup.
func pctChange(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return math.Round(delta/base*100*100) / 100
}

// WriteSummary renders the positioning summary as a fixed-width console
// block.
func (a *Analyzer) WriteSummary(w io.Writer) error {
	summary, ok := a.Summary()
	if !ok {
		_, err := io.WriteString(w, "No data available\n")
		return err
	}

	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "COMMITMENT OF TRADERS REPORT - %s\n", summary.ContractCode)
	fmt.Fprintf(&b, "Report Date: %s\n", summary.ReportDate)
	fmt.Fprintf(&b, "%s\n\n", rule)

	fmt.Fprintf(&b, "OVERALL MARKET:\n")
	fmt.Fprintf(&b, "  Total Long:   %15s MW\n", models.FormatAmount(summary.TotalLong))
	fmt.Fprintf(&b, "  Total Short:  %15s MW\n", models.FormatAmount(summary.TotalShort))
	fmt.Fprintf(&b, "  Net Position: %15s MW\n\n", models.FormatAmount(summary.NetPosition))

	fmt.Fprintf(&b, "%-25s %15s %15s %15s %12s\n", "CATEGORY", "LONG", "SHORT", "NET", "CHG")
	fmt.Fprintln(&b, strings.Repeat("-", 85))
	for _, cat := range summary.Categories {
		fmt.Fprintf(&b, "%-25s %15s %15s %15s %12s\n",
			cat.Name,
			models.FormatAmount(cat.Long),
			models.FormatAmount(cat.Short),
			models.FormatAmount(cat.Net),
			models.FormatAmount(cat.NetChange))
	}

	fmt.Fprintf(&b, "\nWEEKLY CHANGES:\n")
	fmt.Fprintf(&b, "%-25s %15s %15s %15s\n", "CATEGORY", "LONG CHG", "SHORT CHG", "NET CHG")
	fmt.Fprintln(&b, strings.Repeat("-", 73))
	for _, cat := range summary.Categories {
		fmt.Fprintf(&b, "%-25s %15s %15s %15s\n",
			cat.Name,
			models.FormatAmount(cat.LongChange),
			models.FormatAmount(cat.ShortChange),
			models.FormatAmount(cat.NetChange))
	}

	fmt.Fprintf(&b, "\nPERCENTAGE OF TOTAL OPEN INTEREST:\n")
	fmt.Fprintf(&b, "%-25s %10s %10s\n", "CATEGORY", "LONG %", "SHORT %")
	fmt.Fprintln(&b, strings.Repeat("-", 48))
	for _, cat := range summary.Categories {
		fmt.Fprintf(&b, "%-25s %9.2f%% %9.2f%%\n", cat.Name, cat.LongPct, cat.ShortPct)
	}
	fmt.Fprintln(&b)

	_, err := io.WriteString(w, b.String())
	return err
}
