// Package storage keeps the per contract observation archives. Each
// contract owns one flat CSV file in the data directory; merges are
// writes of the full file through a temp file rename, so a crash never
// leaves a half written archive behind.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"cotflow/logger"
	"cotflow/models"
)

const historySuffix = "_history.csv"

// Store manages the observation archives below one data directory.
type Store struct {
	dir string
	log *logger.Log
}

// New opens a store rooted at dir, creating the directory when missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{
		dir: dir,
		log: logger.GetLogger(),
	}, nil
}

// Dir returns the data directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// FilePath returns the archive path for a contract code.
func (s *Store) FilePath(code string) string {
	return filepath.Join(s.dir, code+historySuffix)
}

// Load reads the archive for a contract. The second return value is false
// when no archive exists yet; that is not an error.
func (s *Store) Load(code string) (models.InstrumentSeries, bool, error) {
	f, err := os.Open(s.FilePath(code))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open archive for %s: %w", code, err)
	}
	defer f.Close()

	series := models.InstrumentSeries{}
	if err := gocsv.UnmarshalFile(f, &series); err != nil {
		return nil, false, fmt.Errorf("failed to decode archive for %s: %w", code, err)
	}
	return series, true, nil
}

// Save writes the archive for a contract atomically: the series is encoded
// to a temp file in the data directory and renamed over the old archive.
func (s *Store) Save(code string, series models.InstrumentSeries) error {
	path := s.FilePath(code)

	tmp, err := os.CreateTemp(s.dir, code+"_history-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp archive for %s: %w", code, err)
	}
	tmpPath := tmp.Name()

	if err := gocsv.MarshalFile(&series, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode archive for %s: %w", code, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush archive for %s: %w", code, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace archive for %s: %w", code, err)
	}

	if info, err := os.Stat(path); err == nil {
		logger.IncrementArchiveWrite(info.Size())
	}
	s.log.WithComponent("storage").WithFields(logger.Fields{
		"contract_code": code,
		"records":       len(series),
		"file":          path,
	}).Info("saved contract archive")

	return nil
}

// Append merges incoming observations into the archive for a contract. With
// dedupe set, rows sharing a key with an incoming row are replaced by the
// incoming one. The merged archive is stored newest report first; merging
// the same observations again leaves the file unchanged.
func (s *Store) Append(code string, incoming models.InstrumentSeries, dedupe bool) error {
	existing, _, err := s.Load(code)
	if err != nil {
		return err
	}

	merged := make(models.InstrumentSeries, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)

	if dedupe {
		merged = dedupeKeepLast(merged)
	}
	merged.SortNewestFirst()

	return s.Save(code, merged)
}

// dedupeKeepLast keeps the last occurrence of each key in input order, so
// fresh decodes replace previously stored rows for the same key.
func dedupeKeepLast(series models.InstrumentSeries) models.InstrumentSeries {
	index := make(map[models.ObservationKey]int, len(series))
	out := make(models.InstrumentSeries, 0, len(series))
	for _, o := range series {
		if at, ok := index[o.Key()]; ok {
			out[at] = o
			continue
		}
		index[o.Key()] = len(out)
		out = append(out, o)
	}
	return out
}

// LatestDate returns the most recent report date stored for a contract. The
// second return value is false when no archive or no rows exist.
func (s *Store) LatestDate(code string) (models.Date, bool, error) {
	series, found, err := s.Load(code)
	if err != nil || !found {
		return models.Date{}, false, err
	}
	latest, ok := series.LatestDate()
	return latest, ok, nil
}

// DateRange returns the stored observations between from and to inclusive.
// A zero bound leaves that side of the range open.
func (s *Store) DateRange(code string, from, to models.Date) (models.InstrumentSeries, bool, error) {
	series, found, err := s.Load(code)
	if err != nil || !found {
		return nil, found, err
	}

	out := make(models.InstrumentSeries, 0, len(series))
	for _, o := range series {
		if !from.IsZero() && o.ReportDate.Before(from) {
			continue
		}
		if !to.IsZero() && to.Before(o.ReportDate) {
			continue
		}
		out = append(out, o)
	}
	return out, true, nil
}

// Contracts lists the contract codes with an archive, sorted.
func (s *Store) Contracts() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+historySuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory %s: %w", s.dir, err)
	}

	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, strings.TrimSuffix(filepath.Base(m), historySuffix))
	}
	sort.Strings(codes)
	return codes, nil
}
