package storage

import (
	"cotflow/logger"
	"cotflow/models"
)

// RecentWeeks narrows a series to its most recent weeks: the observations
// of the given position type on the newest distinct report dates, at most
// weeks of them, returned oldest first for charting. A series holding fewer
// weeks than asked simply yields what it has.
func RecentWeeks(series models.InstrumentSeries, positionType models.PositionType, weeks int) models.InstrumentSeries {
	if weeks <= 0 {
		return models.InstrumentSeries{}
	}

	filtered := series.FilterPositionType(positionType)
	dates := filtered.DistinctDates()
	if len(dates) > weeks {
		dates = dates[:weeks]
	}

	window := filtered.OnDates(dates)
	window.SortOldestFirst()
	return window
}

// WeeklyTotals loads a contract archive and windows it to the total rows of
// the last weeks report dates, oldest first. The second return value is
// false when the contract has no archive.
func (s *Store) WeeklyTotals(code string, weeks int) (models.InstrumentSeries, bool, error) {
	series, found, err := s.Load(code)
	if err != nil || !found {
		return nil, found, err
	}

	window := RecentWeeks(series, models.PositionTotal, weeks)
	if got := len(window.DistinctDates()); got < weeks {
		s.log.WithComponent("storage").WithFields(logger.Fields{
			"contract_code":   code,
			"weeks_requested": weeks,
			"weeks_available": got,
		}).Debug("archive holds fewer weeks than requested")
	}
	return window, true, nil
}
