package models

import (
	"fmt"
	"strings"
)

// CategoryNames maps each participant class to its display name.
var CategoryNames = map[Category]string{
	CategoryInvestmentFirms:     "Investment Firms",
	CategoryInvestmentFunds:     "Investment Funds",
	CategoryOtherFinancial:      "Other Financial",
	CategoryCommercial:          "Commercial",
	CategoryComplianceOperators: "Compliance Operators",
}

// CategoryLabels maps each participant class to the full wording the
// exchange prints in the report column headers.
var CategoryLabels = map[Category]string{
	CategoryInvestmentFirms:     "Investment Firms or credit institutions",
	CategoryInvestmentFunds:     "Investment Funds",
	CategoryOtherFinancial:      "Other Financial Institutions",
	CategoryCommercial:          "Commercial Undertakings",
	CategoryComplianceOperators: "Operators with compliance obligations under Directive 2003/87/EC",
}

// DisplayName returns the human readable name of the category, falling back
// to the raw identifier for unknown values.
func (c Category) DisplayName() string {
	if name, ok := CategoryNames[c]; ok {
		return name
	}
	return string(c)
}

// ContractNames maps known EEX contract codes to their product names.
var ContractNames = map[string]string{
	// Power futures
	"ATBM": "Austrian Power Baseload",
	"DEBM": "German Power Baseload",
	"DEPM": "German Power Peak",
	"F7BM": "French Power Baseload",
	"F7PM": "French Power Peakload",
	"F9BM": "Hungarian Power Baseload",
	"FCBM": "Swiss Power Baseload",
	"FDBM": "Italian Power Baseload",
	"FEBM": "Spanish Power Baseload",
	"FEUA": "EU Emission Allowances (EUA)",
	"FOBM": "Japanese Tokyo Power Baseload",
	"FQBM": "Japanese Kansai Power Baseload",
	"FXBM": "Czech Power Baseload",
	"Q0BM": "Dutch Power Baseload",
	"Q0PM": "Dutch Power Peakload",
	"Q1BM": "Belgian Power Baseload",

	// Natural gas futures
	"G0BM": "THE Natural Gas (Germany)",
	"G3BM": "TTF Natural Gas",
	"G5BM": "PEG Natural Gas",
	"G8BM": "CEGH VTP Natural Gas",
	"GBBM": "ZTP Natural Gas",
	"GCBM": "PSV Natural Gas",
	"GEBM": "PVB Natural Gas",

	// Dry bulk freight futures
	"CPTM": "Baltic Capesize 5TC Freight",
	"P5TC": "Baltic Panamax 5TC Freight",
	"PTCM": "Baltic Panamax 4TC Freight",
	"SPTM": "Baltic Supramax 10TC Freight",
}

// ContractName returns the product name for a contract code, falling back to
// the code itself for contracts not in the map.
func ContractName(code string) string {
	if name, ok := ContractNames[code]; ok {
		return name
	}
	return code
}

// FormatAmount renders a position size as a whole number with thousands
// separators, the way the exchange prints MW figures.
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
