package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cotflow/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func obs(day int, cat models.Category, pt models.PositionType, long, short float64) models.Observation {
	return models.NewObservation(models.NewDate(2026, time.January, day), "DEBM", cat, pt,
		long, short, 0, 0, 0, 0)
}

func TestLoadAbsent(t *testing.T) {
	s := newTestStore(t)

	series, found, err := s.Load("DEBM")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found {
		t.Error("Load reported an archive that does not exist")
	}
	if series != nil {
		t.Errorf("Load returned %d observations for absent archive", len(series))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
		obs(23, models.CategoryCommercial, models.PositionTotal, 300, 500),
		obs(16, models.CategoryInvestmentFunds, models.PositionTotal, 900, 350),
	}
	if err := s.Save("DEBM", in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, found, err := s.Load("DEBM")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("Load did not find the saved archive")
	}
	if len(out) != len(in) {
		t.Fatalf("round trip returned %d observations, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("row %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestAppendCreatesArchive(t *testing.T) {
	s := newTestStore(t)

	batch := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
	}
	if err := s.Append("DEBM", batch, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	out, found, err := s.Load("DEBM")
	if err != nil || !found {
		t.Fatalf("Load after Append: found=%v err=%v", found, err)
	}
	if len(out) != 1 {
		t.Fatalf("archive holds %d observations, want 1", len(out))
	}
	if out[0].Net != 600 {
		t.Errorf("stored Net = %v, want 600", out[0].Net)
	}
}

func TestAppendLastWriteWins(t *testing.T) {
	s := newTestStore(t)

	first := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
		obs(23, models.CategoryCommercial, models.PositionTotal, 300, 500),
	}
	if err := s.Append("DEBM", first, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// A corrected report for the same date replaces the stored funds row.
	corrected := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1100, 450),
	}
	if err := s.Append("DEBM", corrected, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	out, _, err := s.Load("DEBM")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("archive holds %d observations, want 2", len(out))
	}
	for _, o := range out {
		if o.Category == models.CategoryInvestmentFunds {
			if o.Long != 1100 || o.Short != 450 || o.Net != 650 {
				t.Errorf("funds row not replaced: %+v", o)
			}
		}
	}
}

func TestAppendIdempotent(t *testing.T) {
	s := newTestStore(t)

	batch := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
		obs(16, models.CategoryInvestmentFunds, models.PositionTotal, 900, 350),
	}
	if err := s.Append("DEBM", batch, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	once, err := os.ReadFile(s.FilePath("DEBM"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	if err := s.Append("DEBM", batch, true); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	twice, err := os.ReadFile(s.FilePath("DEBM"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	if !bytes.Equal(once, twice) {
		t.Error("appending the same batch twice changed the archive")
	}
}

func TestAppendOrderIndependentForDisjointKeys(t *testing.T) {
	batchA := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
	}
	batchB := models.InstrumentSeries{
		obs(16, models.CategoryCommercial, models.PositionOther, 120, 80),
	}

	s1 := newTestStore(t)
	if err := s1.Append("DEBM", batchA, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s1.Append("DEBM", batchB, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	ab, err := os.ReadFile(s1.FilePath("DEBM"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	s2 := newTestStore(t)
	if err := s2.Append("DEBM", batchB, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s2.Append("DEBM", batchA, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	ba, err := os.ReadFile(s2.FilePath("DEBM"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	if !bytes.Equal(ab, ba) {
		t.Error("merge order changed the archive for disjoint batches")
	}
}

func TestAppendWithoutDedupe(t *testing.T) {
	s := newTestStore(t)

	batch := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
	}
	if err := s.Append("DEBM", batch, false); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append("DEBM", batch, false); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	out, _, err := s.Load("DEBM")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("archive holds %d observations, want duplicate rows kept", len(out))
	}
}

func TestArchiveSortedNewestFirst(t *testing.T) {
	s := newTestStore(t)

	batch := models.InstrumentSeries{
		obs(9, models.CategoryInvestmentFunds, models.PositionTotal, 800, 300),
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
		obs(16, models.CategoryInvestmentFunds, models.PositionTotal, 900, 350),
	}
	if err := s.Append("DEBM", batch, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	out, _, err := s.Load("DEBM")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].ReportDate.Before(out[i].ReportDate) {
			t.Fatalf("archive not newest first at row %d: %v before %v",
				i, out[i-1].ReportDate, out[i].ReportDate)
		}
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	batch := models.InstrumentSeries{
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
	}
	if err := s.Save("DEBM", batch); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save("DEBM", batch); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("read data dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "DEBM"+historySuffix {
			t.Errorf("unexpected file left in data dir: %s", e.Name())
		}
	}
}

func TestLatestDate(t *testing.T) {
	s := newTestStore(t)

	if _, found, err := s.LatestDate("DEBM"); err != nil || found {
		t.Fatalf("LatestDate on absent archive: found=%v err=%v", found, err)
	}

	batch := models.InstrumentSeries{
		obs(16, models.CategoryInvestmentFunds, models.PositionTotal, 900, 350),
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
	}
	if err := s.Append("DEBM", batch, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	latest, found, err := s.LatestDate("DEBM")
	if err != nil || !found {
		t.Fatalf("LatestDate: found=%v err=%v", found, err)
	}
	if latest != models.NewDate(2026, time.January, 23) {
		t.Errorf("LatestDate = %v, want 2026-01-23", latest)
	}
}

func TestDateRange(t *testing.T) {
	s := newTestStore(t)

	batch := models.InstrumentSeries{
		obs(9, models.CategoryInvestmentFunds, models.PositionTotal, 800, 300),
		obs(16, models.CategoryInvestmentFunds, models.PositionTotal, 900, 350),
		obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 1000, 400),
	}
	if err := s.Append("DEBM", batch, true); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	mid, found, err := s.DateRange("DEBM",
		models.NewDate(2026, time.January, 10), models.NewDate(2026, time.January, 20))
	if err != nil || !found {
		t.Fatalf("DateRange: found=%v err=%v", found, err)
	}
	if len(mid) != 1 || mid[0].ReportDate != models.NewDate(2026, time.January, 16) {
		t.Errorf("bounded range returned %d rows", len(mid))
	}

	from, _, err := s.DateRange("DEBM", models.NewDate(2026, time.January, 16), models.Date{})
	if err != nil {
		t.Fatalf("DateRange failed: %v", err)
	}
	if len(from) != 2 {
		t.Errorf("open ended range returned %d rows, want 2", len(from))
	}

	all, _, err := s.DateRange("DEBM", models.Date{}, models.Date{})
	if err != nil {
		t.Fatalf("DateRange failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unbounded range returned %d rows, want 3", len(all))
	}

	if _, found, err := s.DateRange("ZZZZ", models.Date{}, models.Date{}); err != nil || found {
		t.Errorf("DateRange on absent archive: found=%v err=%v", found, err)
	}
}

func TestContracts(t *testing.T) {
	s := newTestStore(t)

	codes, err := s.Contracts()
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if len(codes) != 0 {
		t.Errorf("empty store listed contracts: %v", codes)
	}

	for _, code := range []string{"FEUA", "DEBM"} {
		batch := models.InstrumentSeries{
			obs(23, models.CategoryInvestmentFunds, models.PositionTotal, 100, 50),
		}
		if err := s.Append(code, batch, true); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// A stray file in the data dir must not surface as a contract.
	stray := filepath.Join(s.Dir(), "notes.txt")
	if err := os.WriteFile(stray, []byte("scratch"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	codes, err = s.Contracts()
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if strings.Join(codes, ",") != "DEBM,FEUA" {
		t.Errorf("Contracts = %v, want [DEBM FEUA]", codes)
	}
}
