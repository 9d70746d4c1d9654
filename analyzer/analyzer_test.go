package analyzer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"cotflow/models"
)

var (
	week1 = models.NewDate(2026, time.January, 9)
	week2 = models.NewDate(2026, time.January, 16)
	week3 = models.NewDate(2026, time.January, 23)
)

func total(date models.Date, cat models.Category, long, short, longChg, shortChg, longPct, shortPct float64) models.Observation {
	return models.NewObservation(date, "DEBM", cat, models.PositionTotal, long, short, longChg, shortChg, longPct, shortPct)
}

func fixtureSeries() models.InstrumentSeries {
	return models.InstrumentSeries{
		total(week3, models.CategoryCommercial, 5000, 4200, -100, 80, 61.2, 72.4),
		total(week3, models.CategoryInvestmentFunds, 1000, 400, 50, -25, 12.5, 5.0),
		total(week3, models.CategoryInvestmentFirms, 300, 900, 10, 20, 3.7, 15.5),
		total(week3, models.CategoryOtherFinancial, 10, 5, 0, 0, 0.1, 0.1),
		models.NewObservation(week3, "DEBM", models.CategoryInvestmentFunds, models.PositionOther, 100, 60, 5, 5, 0, 0),

		total(week2, models.CategoryCommercial, 5100, 4120, 40, -30, 62.0, 71.8),
		total(week2, models.CategoryInvestmentFunds, 900, 380, 100, 30, 11.0, 4.6),
		total(week2, models.CategoryInvestmentFirms, 280, 880, -5, 10, 3.4, 15.3),
		total(week2, models.CategoryOtherFinancial, 0, 0, 0, 0, 0, 0),

		total(week1, models.CategoryInvestmentFunds, 800, 350, 20, 10, 10.2, 4.3),
	}
}

func TestLatestPositions(t *testing.T) {
	a := New(fixtureSeries())

	rows := a.LatestPositions(models.PositionTotal)
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	wantOrder := []models.Category{
		models.CategoryCommercial,      // net 800
		models.CategoryInvestmentFunds, // net 600
		models.CategoryOtherFinancial,  // net 5
		models.CategoryInvestmentFirms, // net -600
	}
	for i, want := range wantOrder {
		if rows[i].Category != want {
			t.Errorf("row %d category = %s, want %s", i, rows[i].Category, want)
		}
	}
	for _, row := range rows {
		if row.ReportDate != week3 {
			t.Errorf("row has date %s, want %s", row.ReportDate, week3)
		}
	}

	if got := New(nil).LatestPositions(models.PositionTotal); got != nil {
		t.Errorf("empty series yielded %v rows", len(got))
	}
}

func TestWeeklyChange(t *testing.T) {
	a := New(fixtureSeries())

	rows := a.WeeklyChange(models.PositionTotal)
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	wantOrder := []models.Category{
		models.CategoryInvestmentFunds, // net change 75
		models.CategoryOtherFinancial,  // net change 0
		models.CategoryInvestmentFirms, // net change -10
		models.CategoryCommercial,      // net change -180
	}
	for i, want := range wantOrder {
		if rows[i].Category != want {
			t.Errorf("row %d category = %s, want %s", i, rows[i].Category, want)
		}
	}
}

func TestSummary(t *testing.T) {
	a := New(fixtureSeries())

	summary, ok := a.Summary()
	if !ok {
		t.Fatal("expected a summary")
	}
	if summary.ReportDate != week3 {
		t.Errorf("report date = %s, want %s", summary.ReportDate, week3)
	}
	if summary.ContractCode != "DEBM" {
		t.Errorf("contract = %s, want DEBM", summary.ContractCode)
	}
	if summary.TotalLong != 6310 {
		t.Errorf("total long = %v, want 6310", summary.TotalLong)
	}
	if summary.TotalShort != 5505 {
		t.Errorf("total short = %v, want 5505", summary.TotalShort)
	}
	if summary.NetPosition != 805 {
		t.Errorf("net position = %v, want 805", summary.NetPosition)
	}
	if len(summary.Categories) != 4 {
		t.Fatalf("got %d categories, want 4", len(summary.Categories))
	}
	if summary.Categories[0].Name != "Commercial" {
		t.Errorf("first category = %s, want Commercial", summary.Categories[0].Name)
	}

	if _, ok := New(nil).Summary(); ok {
		t.Error("empty series produced a summary")
	}
}

func TestHistoricalSeries(t *testing.T) {
	a := New(fixtureSeries())

	rows := a.HistoricalSeries(models.CategoryInvestmentFunds, 2)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ReportDate != week2 || rows[1].ReportDate != week3 {
		t.Errorf("dates = %s, %s, want ascending %s, %s", rows[0].ReportDate, rows[1].ReportDate, week2, week3)
	}
	if rows[0].Long != 900 || rows[1].Long != 1000 {
		t.Errorf("longs = %v, %v, want 900, 1000", rows[0].Long, rows[1].Long)
	}

	all := a.HistoricalSeries(models.CategoryInvestmentFunds, 13)
	if len(all) != 3 {
		t.Fatalf("got %d rows for a wide window, want 3", len(all))
	}
	if all[0].Long != 800 {
		t.Errorf("oldest long = %v, want 800", all[0].Long)
	}
}

func TestComparePeriods(t *testing.T) {
	a := New(fixtureSeries())

	rows, ok := a.ComparePeriods(1)
	if !ok {
		t.Fatal("expected a comparison")
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	byCat := make(map[models.Category]PeriodComparison, len(rows))
	for _, row := range rows {
		byCat[row.Category] = row
	}

	funds := byCat[models.CategoryInvestmentFunds]
	if funds.LongChange != 100 || funds.ShortChange != 20 || funds.NetChange != 80 {
		t.Errorf("funds changes = %v/%v/%v, want 100/20/80", funds.LongChange, funds.ShortChange, funds.NetChange)
	}
	if funds.LongPctChange != 11.11 {
		t.Errorf("funds long pct change = %v, want 11.11", funds.LongPctChange)
	}
	if funds.NetPctChange != 15.38 {
		t.Errorf("funds net pct change = %v, want 15.38", funds.NetPctChange)
	}

	firms := byCat[models.CategoryInvestmentFirms]
	if firms.NetChange != 0 || firms.NetPctChange != 0 {
		t.Errorf("firms net change = %v (%v%%), want flat", firms.NetChange, firms.NetPctChange)
	}

	// A zero past position cannot produce a percentage.
	other := byCat[models.CategoryOtherFinancial]
	if other.LongPctChange != 0 || other.NetPctChange != 0 {
		t.Errorf("other financial pct changes = %v/%v, want 0/0", other.LongPctChange, other.NetPctChange)
	}
	if other.NetChange != 5 {
		t.Errorf("other financial net change = %v, want 5", other.NetChange)
	}

	commercial := byCat[models.CategoryCommercial]
	if commercial.NetPctChange != -18.37 {
		t.Errorf("commercial net pct change = %v, want -18.37", commercial.NetPctChange)
	}
}

func TestComparePeriodsClampsLookback(t *testing.T) {
	a := New(fixtureSeries())

	// Only three weeks on file; a ten week lookback lands on the oldest.
	rows, ok := a.ComparePeriods(10)
	if !ok {
		t.Fatal("expected a comparison")
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	funds := rows[0]
	if funds.Category != models.CategoryInvestmentFunds {
		t.Fatalf("category = %s, want investment_funds", funds.Category)
	}
	if funds.LongChange != 200 || funds.LongPctChange != 25 {
		t.Errorf("funds long change = %v (%v%%), want 200 (25%%)", funds.LongChange, funds.LongPctChange)
	}

	if _, ok := New(nil).ComparePeriods(4); ok {
		t.Error("empty series produced a comparison")
	}
}

func TestWriteSummary(t *testing.T) {
	a := New(fixtureSeries())

	var buf bytes.Buffer
	if err := a.WriteSummary(&buf); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"COMMITMENT OF TRADERS REPORT - DEBM",
		"Report Date: 2026-01-23",
		"Total Long:",
		"6,310",
		"Commercial",
		"WEEKLY CHANGES:",
		"PERCENTAGE OF TOTAL OPEN INTEREST:",
		"12.50%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}

	buf.Reset()
	if err := New(nil).WriteSummary(&buf); err != nil {
		t.Fatalf("WriteSummary on empty series: %v", err)
	}
	if !strings.Contains(buf.String(), "No data available") {
		t.Errorf("empty summary = %q", buf.String())
	}
}
