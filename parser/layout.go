package parser

import "cotflow/models"

// DefaultSheet is the sheet carrying the current week in every report file.
// Older weeks, when present, live on additional sheets with the same layout.
const DefaultSheet = "Weekly_Report"

// The weekly report sheets use a fixed layout. All indices are zero based.
//
// Rows 0..7 hold the header block, values in column 1. Three data blocks
// follow, one row per position type in the order risk_reducing, other,
// total:
//
//	rows 11..13  number of open positions (lots)
//	rows 14..16  change since the previous report
//	rows 17..19  percentage of total open interest
//
// Within each block the five participant categories occupy fixed column
// pairs, long before short.
const (
	metadataCol = 1

	rowTradingVenue        = 0
	rowVenueIdentifier     = 1
	rowReportDate          = 2
	rowPublicationDatetime = 3
	rowContractName        = 4
	rowContractCode        = 5
	rowReportStatus        = 6
	rowReportType          = 7

	rowPositions   = 11
	rowChanges     = 14
	rowPercentages = 17
)

// categoryColumns lists the long and short columns of each participant
// class, in the order the report prints them. The column headers spell the
// classes out in full, see models.CategoryLabels.
var categoryColumns = []struct {
	category models.Category
	long     int
	short    int
}{
	{category: models.CategoryInvestmentFirms, long: 3, short: 4},
	{category: models.CategoryInvestmentFunds, long: 5, short: 6},
	{category: models.CategoryOtherFinancial, long: 7, short: 8},
	{category: models.CategoryCommercial, long: 9, short: 10},
	{category: models.CategoryComplianceOperators, long: 11, short: 12},
}
