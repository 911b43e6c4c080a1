package classify

import "github.com/gridline/contract-engine/internal/types"

// DefaultCues returns the built-in cue set for energy-service contract
// documents. Weights are relative within a type; classification confidence
// normalizes across the whole set.
func DefaultCues() []Cue {
	return []Cue{
		// Framework agreements
		{Pattern: "Framework Agreement", Weight: 10, AppliesTo: types.DocTypeFrameworkAgreement},
		{Pattern: "Master Framework", Weight: 8, AppliesTo: types.DocTypeFrameworkAgreement},
		{Pattern: "master terms and conditions", Weight: 5, AppliesTo: types.DocTypeFrameworkAgreement},
		{ID: "framework-exhibit-ref", Pattern: `(?m)Exhibit\s+[A-Z]\s+to\s+the\s+Framework`, Regex: true, Weight: 4, AppliesTo: types.DocTypeFrameworkAgreement},

		// Lease supplements
		{Pattern: "Lease Supplement", Weight: 10, AppliesTo: types.DocTypeLeaseSupplement},
		{Pattern: "Master Lease", Weight: 6, AppliesTo: types.DocTypeLeaseSupplement},
		{Pattern: "lessor", Weight: 3, AppliesTo: types.DocTypeLeaseSupplement},
		{Pattern: "lessee", Weight: 3, AppliesTo: types.DocTypeLeaseSupplement},
		{ID: "lease-schedule-ref", Pattern: `Lease\s+Schedule\s+No\.?\s*\d+`, Regex: true, Weight: 5, AppliesTo: types.DocTypeLeaseSupplement},

		// EPC addenda
		{Pattern: "EPC Addendum", Weight: 10, AppliesTo: types.DocTypeEPCAddendum},
		{Pattern: "engineering, procurement and construction", Weight: 8, AppliesTo: types.DocTypeEPCAddendum},
		{Pattern: "substantial completion", Weight: 4, AppliesTo: types.DocTypeEPCAddendum},
		{Pattern: "commissioning", Weight: 3, AppliesTo: types.DocTypeEPCAddendum},

		// Power purchase agreements
		{Pattern: "Power Purchase Agreement", Weight: 10, AppliesTo: types.DocTypePowerPurchase},
		{ID: "ppa-abbrev", Pattern: `\bPPA\b`, Regex: true, Weight: 6, AppliesTo: types.DocTypePowerPurchase},
		{Pattern: "energy delivered", Weight: 4, AppliesTo: types.DocTypePowerPurchase},
		{ID: "ppa-rate", Pattern: `\$\s*[\d.]+\s*(?:/|per )\s*kWh`, Regex: true, Weight: 4, AppliesTo: types.DocTypePowerPurchase},

		// O&M agreements
		{Pattern: "Operations and Maintenance", Weight: 10, AppliesTo: types.DocTypeOperationsMaintenance},
		{ID: "om-abbrev", Pattern: `\bO&M\b`, Regex: true, Weight: 6, AppliesTo: types.DocTypeOperationsMaintenance},
		{Pattern: "preventive maintenance", Weight: 4, AppliesTo: types.DocTypeOperationsMaintenance},
		{Pattern: "service level", Weight: 3, AppliesTo: types.DocTypeOperationsMaintenance},
	}
}
