package models

import "time"

// Category identifies one of the five participant classes broken out by the
// weekly position reports.
type Category string

const (
	CategoryInvestmentFirms     Category = "investment_firms"
	CategoryInvestmentFunds     Category = "investment_funds"
	CategoryOtherFinancial      Category = "other_financial"
	CategoryCommercial          Category = "commercial"
	CategoryComplianceOperators Category = "compliance_operators"
)

// Categories lists the participant classes in report column order.
var Categories = []Category{
	CategoryInvestmentFirms,
	CategoryInvestmentFunds,
	CategoryOtherFinancial,
	CategoryCommercial,
	CategoryComplianceOperators,
}

// PositionType identifies the row flavour within a report block.
type PositionType string

const (
	PositionRiskReducing PositionType = "risk_reducing"
	PositionOther        PositionType = "other"
	PositionTotal        PositionType = "total"
)

// PositionTypes lists the position types in report row order.
var PositionTypes = []PositionType{
	PositionRiskReducing,
	PositionOther,
	PositionTotal,
}

// ReportMetadata is the header block of a single weekly report sheet.
type ReportMetadata struct {
	TradingVenue        string    `json:"trading_venue"`
	VenueIdentifier     string    `json:"venue_identifier"`
	ReportDate          Date      `json:"report_date"`
	PublicationDatetime time.Time `json:"publication_datetime"`
	ContractName        string    `json:"contract_name"`
	ContractCode        string    `json:"contract_code"`
	ReportStatus        string    `json:"report_status"`
	ReportType          string    `json:"report_type"`
}

// Observation is one normalized row of a weekly report: the aggregate
// position of one participant category, for one position type, on one
// report date. Net figures are derived at construction and never stored
// independently of their long and short legs.
type Observation struct {
	ReportDate   Date         `csv:"report_date" json:"report_date"`
	ContractCode string       `csv:"contract_code" json:"contract_code"`
	Category     Category     `csv:"category" json:"category"`
	PositionType PositionType `csv:"position_type" json:"position_type"`
	Long         float64      `csv:"long" json:"long"`
	Short        float64      `csv:"short" json:"short"`
	Net          float64      `csv:"net" json:"net"`
	LongChange   float64      `csv:"long_change" json:"long_change"`
	ShortChange  float64      `csv:"short_change" json:"short_change"`
	NetChange    float64      `csv:"net_change" json:"net_change"`
	LongPct      float64      `csv:"long_pct" json:"long_pct"`
	ShortPct     float64      `csv:"short_pct" json:"short_pct"`
}

// ObservationKey uniquely identifies an observation within a contract series.
type ObservationKey struct {
	ReportDate   Date
	Category     Category
	PositionType PositionType
}

// NewObservation assembles an observation from the raw report figures,
// deriving Net and NetChange from the long and short legs.
func NewObservation(date Date, contractCode string, category Category, positionType PositionType,
	long, short, longChange, shortChange, longPct, shortPct float64) Observation {
	return Observation{
		ReportDate:   date,
		ContractCode: contractCode,
		Category:     category,
		PositionType: positionType,
		Long:         long,
		Short:        short,
		Net:          long - short,
		LongChange:   longChange,
		ShortChange:  shortChange,
		NetChange:    longChange - shortChange,
		LongPct:      longPct,
		ShortPct:     shortPct,
	}
}

// Key returns the identity of the observation within its contract series.
func (o Observation) Key() ObservationKey {
	return ObservationKey{
		ReportDate:   o.ReportDate,
		Category:     o.Category,
		PositionType: o.PositionType,
	}
}
