// Package parser decodes weekly position report workbooks into normalized
// observations. The sheets carry no machine readable schema, so decoding
// works off the fixed layout described in layout.go.
package parser

import (
	"strconv"
	"strings"
	"time"

	"cotflow/grid"
	"cotflow/logger"
	"cotflow/models"
)

// Parser decodes the sheets of one report workbook.
type Parser struct {
	src *grid.Source
	log *logger.Log
}

// Open opens the workbook at path for decoding.
func Open(path string) (*Parser, error) {
	src, err := grid.Open(path)
	if err != nil {
		return nil, err
	}
	return New(src), nil
}

// New wraps an already opened source. The parser takes ownership and
// releases the source on Close.
func New(src *grid.Source) *Parser {
	return &Parser{
		src: src,
		log: logger.GetLogger(),
	}
}

// Close releases the underlying workbook.
func (p *Parser) Close() error {
	return p.src.Close()
}

// Sheets lists the sheet names of the workbook in workbook order.
func (p *Parser) Sheets() []string {
	return p.src.Sheets()
}

// Metadata decodes the header block of one sheet. The report date is the
// only header field that must decode; everything else is carried through as
// written.
func (p *Parser) Metadata(sheet string) (models.ReportMetadata, error) {
	g, err := p.src.Grid(sheet)
	if err != nil {
		return models.ReportMetadata{}, err
	}
	return decodeMetadata(g, sheet)
}

func decodeMetadata(g grid.Grid, sheet string) (models.ReportMetadata, error) {
	rawDate := strings.TrimSpace(g.Cell(rowReportDate, metadataCol))
	date, ok := parseDateCell(rawDate)
	if !ok {
		return models.ReportMetadata{}, &DecodeError{Sheet: sheet, Field: "report_date", Value: rawDate}
	}

	return models.ReportMetadata{
		TradingVenue:        strings.TrimSpace(g.Cell(rowTradingVenue, metadataCol)),
		VenueIdentifier:     strings.TrimSpace(g.Cell(rowVenueIdentifier, metadataCol)),
		ReportDate:          date,
		PublicationDatetime: parseTimestampCell(g.Cell(rowPublicationDatetime, metadataCol)),
		ContractName:        strings.TrimSpace(g.Cell(rowContractName, metadataCol)),
		ContractCode:        strings.TrimSpace(g.Cell(rowContractCode, metadataCol)),
		ReportStatus:        strings.TrimSpace(g.Cell(rowReportStatus, metadataCol)),
		ReportType:          strings.TrimSpace(g.Cell(rowReportType, metadataCol)),
	}, nil
}

// Positions decodes one sheet into observations, one per category and
// position type. The three data blocks are joined by reading the same
// category columns at each block's row for the position type.
func (p *Parser) Positions(sheet string) (models.InstrumentSeries, error) {
	g, err := p.src.Grid(sheet)
	if err != nil {
		return nil, err
	}

	meta, err := decodeMetadata(g, sheet)
	if err != nil {
		return nil, err
	}

	series := make(models.InstrumentSeries, 0, len(models.PositionTypes)*len(categoryColumns))
	for i, positionType := range models.PositionTypes {
		for _, cc := range categoryColumns {
			series = append(series, models.NewObservation(
				meta.ReportDate, meta.ContractCode, cc.category, positionType,
				cleanNumber(g.Cell(rowPositions+i, cc.long)),
				cleanNumber(g.Cell(rowPositions+i, cc.short)),
				cleanNumber(g.Cell(rowChanges+i, cc.long)),
				cleanNumber(g.Cell(rowChanges+i, cc.short)),
				cleanNumber(g.Cell(rowPercentages+i, cc.long)),
				cleanNumber(g.Cell(rowPercentages+i, cc.short)),
			))
		}
	}

	logger.IncrementDecodedSheet()
	p.log.WithComponent("parser").WithFields(logger.Fields{
		"sheet":         sheet,
		"contract_code": meta.ContractCode,
		"report_date":   meta.ReportDate.String(),
		"observations":  len(series),
	}).Debug("decoded report sheet")

	return series, nil
}

// All decodes every sheet of the workbook. Sheets that fail to decode are
// logged and skipped; a workbook with no decodable sheet yields an empty
// series, not an error.
func (p *Parser) All() models.InstrumentSeries {
	var all models.InstrumentSeries
	for _, sheet := range p.src.Sheets() {
		series, err := p.Positions(sheet)
		if err != nil {
			p.log.WithComponent("parser").WithError(err).WithFields(logger.Fields{
				"file":  p.src.Path(),
				"sheet": sheet,
			}).Warn("skipping sheet that failed to decode")
			continue
		}
		all = append(all, series...)
	}
	return all
}

// Latest decodes the current week sheet and returns its header together
// with the total position rows only.
func (p *Parser) Latest() (models.ReportMetadata, models.InstrumentSeries, error) {
	meta, err := p.Metadata(DefaultSheet)
	if err != nil {
		return models.ReportMetadata{}, nil, err
	}
	series, err := p.Positions(DefaultSheet)
	if err != nil {
		return models.ReportMetadata{}, nil, err
	}
	return meta, series.FilterPositionType(models.PositionTotal), nil
}

// ParseFile decodes every sheet of the workbook at path.
func ParseFile(path string) (models.InstrumentSeries, error) {
	p, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.All(), nil
}

// cleanNumber coerces a rendered cell to a float. Blank cells, dashes and
// values that do not parse all read as zero, matching how absent figures
// appear in the published reports. Thousands separators and a percent
// suffix are stripped before parsing.
func cleanNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Layouts a date cell may render as, depending on the workbook's number
// formats. ISO comes first so unambiguous values never hit the short forms.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
	"01/02/2006",
	"01-02-06",
	"1/2/06 15:04",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/06 15:04",
	"2006-01-02",
}

func parseDateCell(raw string) (models.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return models.DateOf(fromExcelSerial(serial)), true
	}
	return models.Date{}, false
}

func parseTimestampCell(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return fromExcelSerial(serial)
	}
	return time.Time{}
}

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// fromExcelSerial converts a spreadsheet serial number, days since the 1900
// epoch with the time of day in the fraction. Whole days go through AddDate
// so integer serials never land a hair before midnight.
func fromExcelSerial(serial float64) time.Time {
	days := int(serial)
	frac := serial - float64(days)
	t := excelEpoch.AddDate(0, 0, days)
	return t.Add(time.Duration(frac * 24 * float64(time.Hour)))
}
