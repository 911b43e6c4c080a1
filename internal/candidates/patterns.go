package candidates

import (
	"regexp"

	"github.com/gridline/contract-engine/internal/types"
)

// Canonical field names shared with the AI extraction prompt and the merge
// engine. Pattern and AI candidates for the same concern must agree on
// these names or they will never reconcile.
const (
	FieldCapacityKW      = "capacity_kw"
	FieldRatePerKWh      = "rate_per_kwh"
	FieldTermYears       = "term_years"
	FieldEscalatorPct    = "escalator_percent"
	FieldWarrantyYears   = "warranty_years"
	FieldUptimePct       = "uptime_guarantee_percent"
	FieldEffectiveDate   = "effective_date"
	FieldCounterparty    = "counterparty"
	FieldPaymentTermDays = "payment_term_days"
)

var (
	reCapacity = regexp.MustCompile(`(?i)(?:rated |nameplate )?capacity(?: of)?[:\s]+([\d,]+(?:\.\d+)?)\s*kW`)
	reRate     = regexp.MustCompile(`(?i)\$\s*([\d.]+)\s*(?:/|per )\s*kWh`)
	reTerm     = regexp.MustCompile(`(?i)(?:initial |contract )?term of\s+(\d+)\s+years?`)
	reTermAlt  = regexp.MustCompile(`(?i)(\d+)[\s-]*year\s+(?:initial\s+)?term`)
	reEscal    = regexp.MustCompile(`(?i)(?:annual )?escalat(?:or|ion)(?: rate)?(?: of)?[:\s]+([\d.]+)\s*%`)
	reWarranty = regexp.MustCompile(`(?i)warrant(?:y|ies)(?: period)?(?: of)?[:\s]+(\d+)\s+years?`)
	reUptime   = regexp.MustCompile(`(?i)(?:uptime|availability)(?: guarantee)?(?: of)?[:\s]+([\d.]+)\s*%`)
	reEffDate  = regexp.MustCompile(`(?i)effective (?:as of |date[:\s]+)([A-Z][a-z]+ \d{1,2}, \d{4})`)
	rePayTerm  = regexp.MustCompile(`(?i)net\s+(\d+)\s+days?`)
	rePayAlt   = regexp.MustCompile(`(?i)payable within\s+(\d+)\s+days`)
	reParty    = regexp.MustCompile(`(?i)between\s+(?:Customer|Purchaser|Lessee)\s+and\s+([A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*)*)`)
)

// genericPatterns is the fallback set used when a document cannot be
// classified: the financially load-bearing fields only.
func genericPatterns() []FieldPattern {
	return []FieldPattern{
		{Field: FieldCapacityKW, Pattern: reCapacity},
		{Field: FieldRatePerKWh, Pattern: reRate},
		{Field: FieldTermYears, Pattern: reTerm},
		{Field: FieldTermYears, Pattern: reTermAlt},
		{Field: FieldEffectiveDate, Pattern: reEffDate},
		{Field: FieldCounterparty, Pattern: reParty},
	}
}

func defaultRegistry() map[types.DocumentType][]FieldPattern {
	common := genericPatterns()

	withCommon := func(extra ...FieldPattern) []FieldPattern {
		out := append([]FieldPattern(nil), common...)
		return append(out, extra...)
	}

	return map[types.DocumentType][]FieldPattern{
		types.DocTypeFrameworkAgreement: withCommon(
			FieldPattern{Field: FieldPaymentTermDays, Pattern: rePayTerm},
			FieldPattern{Field: FieldPaymentTermDays, Pattern: rePayAlt},
			FieldPattern{Field: FieldEscalatorPct, Pattern: reEscal},
		),
		types.DocTypeLeaseSupplement: withCommon(
			FieldPattern{Field: FieldEscalatorPct, Pattern: reEscal},
			FieldPattern{Field: FieldWarrantyYears, Pattern: reWarranty},
		),
		types.DocTypeEPCAddendum: withCommon(
			FieldPattern{Field: FieldWarrantyYears, Pattern: reWarranty},
			FieldPattern{Field: FieldPaymentTermDays, Pattern: rePayTerm},
		),
		types.DocTypePowerPurchase: withCommon(
			FieldPattern{Field: FieldEscalatorPct, Pattern: reEscal},
			FieldPattern{Field: FieldUptimePct, Pattern: reUptime},
		),
		types.DocTypeOperationsMaintenance: withCommon(
			FieldPattern{Field: FieldUptimePct, Pattern: reUptime},
			FieldPattern{Field: FieldWarrantyYears, Pattern: reWarranty},
			FieldPattern{Field: FieldPaymentTermDays, Pattern: rePayTerm},
		),
	}
}
