package models

import "sort"

// InstrumentSeries is the accumulated observation history for one contract
// code, ordered as its producer left it.
type InstrumentSeries []Observation

var (
	categoryRank     = make(map[Category]int, len(Categories))
	positionTypeRank = make(map[PositionType]int, len(PositionTypes))
)

func init() {
	for i, c := range Categories {
		categoryRank[c] = i
	}
	for i, p := range PositionTypes {
		positionTypeRank[p] = i
	}
}

// less orders two observations by date, then category, then position type,
// so that equal inputs always serialize byte for byte identically.
func less(a, b Observation, newestFirst bool) bool {
	if !a.ReportDate.Time().Equal(b.ReportDate.Time()) {
		if newestFirst {
			return b.ReportDate.Before(a.ReportDate)
		}
		return a.ReportDate.Before(b.ReportDate)
	}
	if categoryRank[a.Category] != categoryRank[b.Category] {
		return categoryRank[a.Category] < categoryRank[b.Category]
	}
	return positionTypeRank[a.PositionType] < positionTypeRank[b.PositionType]
}

// SortNewestFirst orders the series in place, most recent report date first.
func (s InstrumentSeries) SortNewestFirst() {
	sort.Slice(s, func(i, j int) bool { return less(s[i], s[j], true) })
}

// SortOldestFirst orders the series in place, oldest report date first.
func (s InstrumentSeries) SortOldestFirst() {
	sort.Slice(s, func(i, j int) bool { return less(s[i], s[j], false) })
}

// DistinctDates returns the unique report dates in the series, newest first.
func (s InstrumentSeries) DistinctDates() []Date {
	seen := make(map[Date]struct{}, len(s))
	dates := make([]Date, 0, len(s))
	for _, o := range s {
		if _, ok := seen[o.ReportDate]; ok {
			continue
		}
		seen[o.ReportDate] = struct{}{}
		dates = append(dates, o.ReportDate)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[j].Before(dates[i]) })
	return dates
}

// LatestDate returns the most recent report date in the series. The second
// return value is false when the series is empty.
func (s InstrumentSeries) LatestDate() (Date, bool) {
	var latest Date
	found := false
	for _, o := range s {
		if !found || latest.Before(o.ReportDate) {
			latest = o.ReportDate
			found = true
		}
	}
	return latest, found
}

// FilterPositionType returns the observations carrying the given position type.
func (s InstrumentSeries) FilterPositionType(pt PositionType) InstrumentSeries {
	out := make(InstrumentSeries, 0, len(s))
	for _, o := range s {
		if o.PositionType == pt {
			out = append(out, o)
		}
	}
	return out
}

// FilterCategory returns the observations carrying the given category.
func (s InstrumentSeries) FilterCategory(c Category) InstrumentSeries {
	out := make(InstrumentSeries, 0, len(s))
	for _, o := range s {
		if o.Category == c {
			out = append(out, o)
		}
	}
	return out
}

// OnDate returns the observations reported on the given date.
func (s InstrumentSeries) OnDate(d Date) InstrumentSeries {
	out := make(InstrumentSeries, 0, len(s))
	for _, o := range s {
		if o.ReportDate == d {
			out = append(out, o)
		}
	}
	return out
}

// OnDates returns the observations whose report date is in the given set,
// preserving the series order.
func (s InstrumentSeries) OnDates(dates []Date) InstrumentSeries {
	keep := make(map[Date]struct{}, len(dates))
	for _, d := range dates {
		keep[d] = struct{}{}
	}
	out := make(InstrumentSeries, 0, len(s))
	for _, o := range s {
		if _, ok := keep[o.ReportDate]; ok {
			out = append(out, o)
		}
	}
	return out
}
