package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"cotflow/logger"
	"cotflow/models"
)

// archiveRow is the parquet projection of one observation.
type archiveRow struct {
	ReportDate   string  `parquet:"name=report_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	ContractCode string  `parquet:"name=contract_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category     string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	PositionType string  `parquet:"name=position_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Long         float64 `parquet:"name=long, type=DOUBLE"`
	Short        float64 `parquet:"name=short, type=DOUBLE"`
	Net          float64 `parquet:"name=net, type=DOUBLE"`
	LongChange   float64 `parquet:"name=long_change, type=DOUBLE"`
	ShortChange  float64 `parquet:"name=short_change, type=DOUBLE"`
	NetChange    float64 `parquet:"name=net_change, type=DOUBLE"`
	LongPct      float64 `parquet:"name=long_pct, type=DOUBLE"`
	ShortPct     float64 `parquet:"name=short_pct, type=DOUBLE"`
}

// memoryParquetFile implements the parquet file interface over a byte
// buffer for in-memory encoding.
type memoryParquetFile struct {
	buffer *bytes.Buffer
}

func newMemoryParquetFile() *memoryParquetFile {
	return &memoryParquetFile{
		buffer: &bytes.Buffer{},
	}
}

func (mpf *memoryParquetFile) Create(name string) (source.ParquetFile, error) {
	return mpf, nil
}

func (mpf *memoryParquetFile) Open(name string) (source.ParquetFile, error) {
	return mpf, nil
}

func (mpf *memoryParquetFile) Seek(offset int64, whence int) (int64, error) {
	return int64(mpf.buffer.Len()), nil
}

func (mpf *memoryParquetFile) Read(b []byte) (int, error) {
	return mpf.buffer.Read(b)
}

func (mpf *memoryParquetFile) Write(b []byte) (int, error) {
	return mpf.buffer.Write(b)
}

func (mpf *memoryParquetFile) Close() error {
	return nil
}

func (mpf *memoryParquetFile) Bytes() []byte {
	return mpf.buffer.Bytes()
}

// EncodeParquet encodes a series to an in-memory parquet file with the
// given compression ("snappy", "gzip", "lzo" or uncompressed otherwise).
func EncodeParquet(series models.InstrumentSeries, compression string) ([]byte, error) {
	mpf := newMemoryParquetFile()

	pw, err := writer.NewParquetWriter(mpf, new(archiveRow), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "lzo":
		pw.CompressionType = parquet.CompressionCodec_LZO
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, o := range series {
		row := archiveRow{
			ReportDate:   o.ReportDate.String(),
			ContractCode: o.ContractCode,
			Category:     string(o.Category),
			PositionType: string(o.PositionType),
			Long:         o.Long,
			Short:        o.Short,
			Net:          o.Net,
			LongChange:   o.LongChange,
			ShortChange:  o.ShortChange,
			NetChange:    o.NetChange,
			LongPct:      o.LongPct,
			ShortPct:     o.ShortPct,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return mpf.Bytes(), nil
}

// ExportParquet writes the parquet projection of a contract archive next to
// its CSV and returns the written path. The archive must exist.
func (s *Store) ExportParquet(code, compression string) (string, error) {
	series, found, err := s.Load(code)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no archive for %s", code)
	}

	data, err := EncodeParquet(series, compression)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, code+"_history.parquet")
	tmp, err := os.CreateTemp(s.dir, code+"_history-*.parquet")
	if err != nil {
		return "", fmt.Errorf("failed to create temp parquet for %s: %w", code, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write parquet for %s: %w", code, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to flush parquet for %s: %w", code, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to replace parquet for %s: %w", code, err)
	}

	s.log.WithComponent("storage").WithFields(logger.Fields{
		"contract_code": code,
		"records":       len(series),
		"file":          path,
		"size":          len(data),
	}).Info("exported contract parquet")

	return path, nil
}
