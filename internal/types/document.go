// Package types defines the core domain models shared across the extraction engine.
package types

// DocumentType identifies the kind of energy-service contract document.
// The set is closed; anything the classifier cannot place lands on Unclassified.
type DocumentType string

// Document type constants.
const (
	DocTypeFrameworkAgreement    DocumentType = "framework_agreement"
	DocTypeLeaseSupplement       DocumentType = "lease_supplement"
	DocTypeEPCAddendum           DocumentType = "epc_addendum"
	DocTypePowerPurchase         DocumentType = "power_purchase_agreement"
	DocTypeOperationsMaintenance DocumentType = "operations_maintenance"
	DocTypeUnclassified          DocumentType = "unclassified"
)

// AllDocumentTypes lists every classifiable type, excluding Unclassified.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeFrameworkAgreement,
		DocTypeLeaseSupplement,
		DocTypeEPCAddendum,
		DocTypePowerPurchase,
		DocTypeOperationsMaintenance,
	}
}

// ClassificationResult is the outcome of cue-based document classification.
// Confidence is the winning type's cumulative cue score normalized against
// the total score across all types; DetectedCues preserves match order.
type ClassificationResult struct {
	DocumentType DocumentType `json:"document_type"`
	Confidence   float64      `json:"confidence"`
	DetectedCues []string     `json:"detected_cues"`
}
