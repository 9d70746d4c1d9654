package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    Date
		wantErr bool
	}{
		{input: "2026-01-23", want: NewDate(2026, time.January, 23)},
		{input: "2025-12-01", want: NewDate(2025, time.December, 1)},
		{input: "23.01.2026", wantErr: true},
		{input: "", wantErr: true},
		{input: "2026-13-40", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDateOrdering(t *testing.T) {
	earlier := NewDate(2026, time.January, 16)
	later := NewDate(2026, time.January, 23)

	if !earlier.Before(later) {
		t.Error("expected earlier date to sort before later date")
	}
	if !later.After(earlier) {
		t.Error("expected later date to sort after earlier date")
	}
	if earlier.Before(earlier) {
		t.Error("date must not sort before itself")
	}
	if got := earlier.AddDays(7); got != later {
		t.Errorf("AddDays(7) = %v, want %v", got, later)
	}
}

func TestDateRoundTrip(t *testing.T) {
	d := NewDate(2026, time.January, 23)

	csv, err := d.MarshalCSV()
	if err != nil {
		t.Fatalf("MarshalCSV failed: %v", err)
	}
	if csv != "2026-01-23" {
		t.Errorf("MarshalCSV = %q, want %q", csv, "2026-01-23")
	}

	var back Date
	if err := back.UnmarshalCSV(csv); err != nil {
		t.Fatalf("UnmarshalCSV failed: %v", err)
	}
	if back != d {
		t.Errorf("csv round trip = %v, want %v", back, d)
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(raw) != `"2026-01-23"` {
		t.Errorf("json.Marshal = %s, want %q", raw, `"2026-01-23"`)
	}
	var fromJSON Date
	if err := json.Unmarshal(raw, &fromJSON); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if fromJSON != d {
		t.Errorf("json round trip = %v, want %v", fromJSON, d)
	}
}

func TestNewObservationDerivesNet(t *testing.T) {
	date := NewDate(2026, time.January, 23)
	obs := NewObservation(date, "DEBM", CategoryInvestmentFunds, PositionTotal,
		1000, 400, 50, -25, 12.5, 5.0)

	if obs.Net != 600 {
		t.Errorf("Net = %v, want 600", obs.Net)
	}
	if obs.NetChange != 75 {
		t.Errorf("NetChange = %v, want 75", obs.NetChange)
	}
	if obs.ContractCode != "DEBM" {
		t.Errorf("ContractCode = %q, want DEBM", obs.ContractCode)
	}

	key := obs.Key()
	want := ObservationKey{ReportDate: date, Category: CategoryInvestmentFunds, PositionType: PositionTotal}
	if key != want {
		t.Errorf("Key() = %+v, want %+v", key, want)
	}
}

func makeSeries() InstrumentSeries {
	week1 := NewDate(2026, time.January, 16)
	week2 := NewDate(2026, time.January, 23)
	return InstrumentSeries{
		NewObservation(week2, "DEBM", CategoryCommercial, PositionTotal, 300, 500, 0, 0, 0, 0),
		NewObservation(week1, "DEBM", CategoryInvestmentFunds, PositionTotal, 900, 350, 0, 0, 0, 0),
		NewObservation(week2, "DEBM", CategoryInvestmentFunds, PositionTotal, 1000, 400, 0, 0, 0, 0),
		NewObservation(week1, "DEBM", CategoryInvestmentFunds, PositionOther, 120, 80, 0, 0, 0, 0),
	}
}

func TestSeriesSorting(t *testing.T) {
	s := makeSeries()
	s.SortNewestFirst()

	if s[0].ReportDate != NewDate(2026, time.January, 23) {
		t.Errorf("newest first: got %v at head", s[0].ReportDate)
	}
	if s[0].Category != CategoryInvestmentFunds {
		t.Errorf("category order within a date: got %v at head", s[0].Category)
	}
	if s[len(s)-1].ReportDate != NewDate(2026, time.January, 16) {
		t.Errorf("newest first: got %v at tail", s[len(s)-1].ReportDate)
	}

	s.SortOldestFirst()
	if s[0].ReportDate != NewDate(2026, time.January, 16) {
		t.Errorf("oldest first: got %v at head", s[0].ReportDate)
	}
	if s[0].PositionType != PositionOther {
		t.Errorf("position type order within a date: got %v at head", s[0].PositionType)
	}
}

func TestSeriesDistinctDates(t *testing.T) {
	s := makeSeries()
	dates := s.DistinctDates()

	if len(dates) != 2 {
		t.Fatalf("DistinctDates returned %d dates, want 2", len(dates))
	}
	if dates[0] != NewDate(2026, time.January, 23) {
		t.Errorf("DistinctDates[0] = %v, want newest", dates[0])
	}
	if dates[1] != NewDate(2026, time.January, 16) {
		t.Errorf("DistinctDates[1] = %v, want oldest", dates[1])
	}
}

func TestSeriesLatestDate(t *testing.T) {
	s := makeSeries()
	latest, ok := s.LatestDate()
	if !ok {
		t.Fatal("LatestDate reported empty series")
	}
	if latest != NewDate(2026, time.January, 23) {
		t.Errorf("LatestDate = %v, want 2026-01-23", latest)
	}

	if _, ok := (InstrumentSeries{}).LatestDate(); ok {
		t.Error("LatestDate on empty series must report not found")
	}
}

func TestSeriesFilters(t *testing.T) {
	s := makeSeries()

	totals := s.FilterPositionType(PositionTotal)
	if len(totals) != 3 {
		t.Errorf("FilterPositionType(total) returned %d observations, want 3", len(totals))
	}

	funds := s.FilterCategory(CategoryInvestmentFunds)
	if len(funds) != 3 {
		t.Errorf("FilterCategory(investment_funds) returned %d observations, want 3", len(funds))
	}

	week2 := s.OnDate(NewDate(2026, time.January, 23))
	if len(week2) != 2 {
		t.Errorf("OnDate returned %d observations, want 2", len(week2))
	}

	picked := s.OnDates([]Date{NewDate(2026, time.January, 16)})
	if len(picked) != 2 {
		t.Errorf("OnDates returned %d observations, want 2", len(picked))
	}
	for _, o := range picked {
		if o.ReportDate != NewDate(2026, time.January, 16) {
			t.Errorf("OnDates kept observation dated %v", o.ReportDate)
		}
	}
}

func TestDisplayNames(t *testing.T) {
	if got := CategoryCommercial.DisplayName(); got != "Commercial" {
		t.Errorf("DisplayName = %q, want Commercial", got)
	}
	if got := Category("mystery").DisplayName(); got != "mystery" {
		t.Errorf("DisplayName fallback = %q, want raw value", got)
	}
	if got := ContractName("DEBM"); got != "German Power Baseload" {
		t.Errorf("ContractName(DEBM) = %q", got)
	}
	if got := ContractName("ZZZZ"); got != "ZZZZ" {
		t.Errorf("ContractName fallback = %q, want code", got)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{9500, "9,500"},
		{1234567, "1,234,567"},
		{-9500, "-9,500"},
		{-100, "-100"},
		{6310.4, "6,310"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
