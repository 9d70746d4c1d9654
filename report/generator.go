// Package report renders contract archives into static HTML: a tabbed
// multi-contract report page plus the landing index that lists every
// generated report.
package report

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"cotflow/analyzer"
	"cotflow/logger"
	"cotflow/models"
	"cotflow/storage"
)

//go:embed report.tmpl
var reportTemplate string

//go:embed index.tmpl
var indexTemplate string

var (
	reportTmpl = template.Must(template.New("report").Funcs(templateFuncs()).Parse(reportTemplate))
	indexTmpl  = template.Must(template.New("index").Parse(indexTemplate))

	indexEntryPattern = regexp.MustCompile(`^cot_report_(\d{8})\.html$`)
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"num": models.FormatAmount,
		"pct": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v)
		},
		"change": formatChange,
	}
}

// formatChange wraps a signed amount in a span carrying its color class.
func formatChange(v float64) template.HTML {
	if v == 0 {
		return `<span class="neutral">0</span>`
	}
	class, sign := "negative", ""
	if v > 0 {
		class, sign = "positive", "+"
	}
	return template.HTML(fmt.Sprintf(`<span class=%q>%s%s</span>`, class, sign, models.FormatAmount(v)))
}

// ContractData is one contract's tab: its archive series plus the header
// fields of its newest decoded report. Tab order follows slice order.
type ContractData struct {
	Code     string
	Series   models.InstrumentSeries
	Metadata models.ReportMetadata
}

// Generator writes report pages into one output directory.
type Generator struct {
	outputDir string
	weeks     int
	log       *logger.Log
}

// NewGenerator creates the output directory if needed. weeks bounds the
// recent-weeks table on every tab.
func NewGenerator(outputDir string, weeks int) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory %s: %w", outputDir, err)
	}
	return &Generator{outputDir: outputDir, weeks: weeks, log: logger.GetLogger()}, nil
}

type reportData struct {
	Title         string
	ReportDate    models.Date
	GeneratedAt   string
	CategoryNames []string
	Tabs          []tabData
}

type tabData struct {
	Code        string
	Name        string
	ReportDate  models.Date
	Venue       string
	Status      string
	TotalLong   float64
	TotalShort  float64
	NetPosition float64
	Positions   []analyzer.CategorySummary
	Changes     []analyzer.CategorySummary
	Weeks       []weekRow
}

type weekRow struct {
	Date models.Date
	Nets []float64
}

// Generate writes the tabbed report for the given contracts and returns its
// path. Contracts with no observations are logged and left out; the report
// is named after the first tab's report date.
func (g *Generator) Generate(contracts []ContractData) (string, error) {
	log := g.log.WithComponent("report")

	data := reportData{
		Title:       "CoT Report - Multi-Contract",
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	for _, cat := range models.Categories {
		data.CategoryNames = append(data.CategoryNames, cat.DisplayName())
	}

	for _, c := range contracts {
		summary, ok := analyzer.New(c.Series).Summary()
		if !ok {
			log.WithFields(logger.Fields{"contract_code": c.Code}).Warn("contract has no observations, skipping tab")
			continue
		}

		changes := make([]analyzer.CategorySummary, len(summary.Categories))
		copy(changes, summary.Categories)
		sort.SliceStable(changes, func(i, j int) bool {
			return changes[i].NetChange > changes[j].NetChange
		})

		data.Tabs = append(data.Tabs, tabData{
			Code:        c.Code,
			Name:        models.ContractName(c.Code),
			ReportDate:  summary.ReportDate,
			Venue:       c.Metadata.TradingVenue,
			Status:      c.Metadata.ReportStatus,
			TotalLong:   summary.TotalLong,
			TotalShort:  summary.TotalShort,
			NetPosition: summary.NetPosition,
			Positions:   summary.Categories,
			Changes:     changes,
			Weeks:       netsByWeek(c.Series, g.weeks),
		})
	}

	if len(data.Tabs) == 0 {
		return "", errors.New("no observations to report")
	}
	data.ReportDate = data.Tabs[0].ReportDate

	name := fmt.Sprintf("cot_report_%s.html", data.ReportDate.Format("20060102"))
	target := filepath.Join(g.outputDir, name)
	if err := g.render(reportTmpl, data, target); err != nil {
		return "", err
	}

	log.WithFields(logger.Fields{
		"file":      target,
		"contracts": len(data.Tabs),
	}).Info("generated html report")
	return target, nil
}

// netsByWeek pivots the recent total positions into one row per report
// date, oldest first, with a net column per category.
func netsByWeek(series models.InstrumentSeries, weeks int) []weekRow {
	window := storage.RecentWeeks(series, models.PositionTotal, weeks)

	byDate := make(map[models.Date]map[models.Category]float64)
	for _, obs := range window {
		if byDate[obs.ReportDate] == nil {
			byDate[obs.ReportDate] = make(map[models.Category]float64)
		}
		byDate[obs.ReportDate][obs.Category] = obs.Net
	}

	var rows []weekRow
	seen := make(map[models.Date]bool)
	for _, obs := range window {
		if seen[obs.ReportDate] {
			continue
		}
		seen[obs.ReportDate] = true

		nets := make([]float64, 0, len(models.Categories))
		for _, cat := range models.Categories {
			nets = append(nets, byDate[obs.ReportDate][cat])
		}
		rows = append(rows, weekRow{Date: obs.ReportDate, Nets: nets})
	}
	return rows
}

type indexItem struct {
	Filename string
	Label    string
}

type indexData struct {
	GeneratedAt string
	Contracts   string
	Items       []indexItem
}

// WriteIndex regenerates index.html from the report files on disk, newest
// first. The contract list is purely informational on each entry.
func (g *Generator) WriteIndex(contracts []string) error {
	entries, err := os.ReadDir(g.outputDir)
	if err != nil {
		return fmt.Errorf("failed to list reports directory: %w", err)
	}

	var items []indexItem
	for _, entry := range entries {
		m := indexEntryPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		date, err := time.Parse("20060102", m[1])
		if err != nil {
			continue
		}
		items = append(items, indexItem{
			Filename: entry.Name(),
			Label:    date.Format("January 02, 2006"),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Filename > items[j].Filename
	})

	data := indexData{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Contracts:   strings.Join(contracts, ", "),
		Items:       items,
	}

	target := filepath.Join(g.outputDir, "index.html")
	if err := g.render(indexTmpl, data, target); err != nil {
		return err
	}

	g.log.WithComponent("report").WithFields(logger.Fields{
		"reports": len(items),
	}).Info("updated report index")
	return nil
}

func (g *Generator) render(tmpl *template.Template, data interface{}, target string) error {
	tmp, err := os.CreateTemp(g.outputDir, filepath.Base(target)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", target, err)
	}
	tmpPath := tmp.Name()

	if err := tmpl.Execute(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to render %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush %s: %w", target, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}
