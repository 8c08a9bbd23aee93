package domain

// HighConfidenceThreshold separates high-confidence matches from results that
// warrant caution. Fixed design constant, not configurable.
const HighConfidenceThreshold = 0.8

// VerificationDetails carries the AI service's field-by-field comparison of a
// package label against expected order data
type VerificationDetails struct {
	ExpectedProductCode  string   `json:"expectedProductCode,omitempty"`
	ExtractedProductCode string   `json:"extractedProductCode,omitempty"`
	ExpectedSKU          string   `json:"expectedSku,omitempty"`
	ExtractedSKU         string   `json:"extractedSku,omitempty"`
	ExpectedWeight       string   `json:"expectedWeight,omitempty"`
	ExtractedWeight      string   `json:"extractedWeight,omitempty"`
	ExpectedColor        string   `json:"expectedColor,omitempty"`
	ExtractedColor       string   `json:"extractedColor,omitempty"`
	ExpectedDimensions   string   `json:"expectedDimensions,omitempty"`
	ExtractedDimensions  string   `json:"extractedDimensions,omitempty"`
	Confidence           float64  `json:"confidence"`
	Issues               []string `json:"issues,omitempty"`
	BinLocation          string   `json:"binLocation,omitempty"`
}

// VerificationResult is the immutable outcome of one verification call
type VerificationResult struct {
	Status            string               `json:"status"` // SUCCESS, MISMATCH, ERROR
	Message           string               `json:"message"`
	Matched           bool                 `json:"matched"`
	AutoAssigned      bool                 `json:"autoAssigned"`
	ApprovalRequestID *int64               `json:"approvalRequestId,omitempty"`
	Details           *VerificationDetails `json:"details,omitempty"`
}

// FieldComparison is one row of the reconciliation table
type FieldComparison struct {
	Field     string `json:"field"`
	Expected  string `json:"expected"`
	Extracted string `json:"extracted"`
	Matches   bool   `json:"matches"`
}

// ConfidenceBand classifies a confidence score for presentation
type ConfidenceBand string

const (
	ConfidenceBandHigh    ConfidenceBand = "high"
	ConfidenceBandCaution ConfidenceBand = "caution"
)

// BandForConfidence returns the presentation band for a confidence score
func BandForConfidence(confidence float64) ConfidenceBand {
	if confidence > HighConfidenceThreshold {
		return ConfidenceBandHigh
	}
	return ConfidenceBandCaution
}

// NextAction is the post-verdict routing policy for the consumer
type NextAction string

const (
	// ActionAutoAdvance: package fully resolved; proceed to the next package,
	// or to the picking stage for outbound shipments
	ActionAutoAdvance NextAction = "AUTO_ADVANCE"
	// ActionShowApprovalReference: approval was already auto-submitted
	// server-side; present its id and do not re-offer the action
	ActionShowApprovalReference NextAction = "SHOW_APPROVAL_REFERENCE"
	// ActionOfferApprovalRequest: offer an explicit supervisor approval request
	ActionOfferApprovalRequest NextAction = "OFFER_APPROVAL_REQUEST"
)

// Reconciliation is the derived presentation of a verification result
type Reconciliation struct {
	Matched     bool              `json:"matched"`
	Message     string            `json:"message"`
	Fields      []FieldComparison `json:"fields,omitempty"`
	Confidence  float64           `json:"confidence"`
	Band        ConfidenceBand    `json:"confidenceBand"`
	BinLocation string            `json:"binLocation,omitempty"`
	Issues      []string          `json:"issues,omitempty"`
	Action      NextAction        `json:"nextAction"`
}

// Reconcile derives the field table, confidence band and routing action for a
// verification result. The field order is fixed.
func Reconcile(result VerificationResult) Reconciliation {
	rec := Reconciliation{
		Matched: result.Matched,
		Message: result.Message,
		Action:  NextActionFor(result),
	}

	d := result.Details
	if d == nil {
		// No details means no confidence score, which never qualifies as high
		rec.Band = BandForConfidence(0)
		return rec
	}

	rec.Fields = []FieldComparison{
		compareField("Product Code", d.ExpectedProductCode, d.ExtractedProductCode),
		compareField("SKU", d.ExpectedSKU, d.ExtractedSKU),
		compareField("Weight", d.ExpectedWeight, d.ExtractedWeight),
		compareField("Color", d.ExpectedColor, d.ExtractedColor),
		compareField("Dimensions", d.ExpectedDimensions, d.ExtractedDimensions),
	}
	rec.Confidence = d.Confidence
	rec.Band = BandForConfidence(d.Confidence)
	rec.BinLocation = d.BinLocation
	rec.Issues = d.Issues

	return rec
}

// compareField treats two absent values as a match so optional attributes do
// not show up as mismatches. Deliberately kept loose; tightening it would
// change how missing-data cases are presented.
func compareField(field, expected, extracted string) FieldComparison {
	return FieldComparison{
		Field:     field,
		Expected:  expected,
		Extracted: extracted,
		Matches:   expected == extracted || (expected == "" && extracted == ""),
	}
}

// NextActionFor applies the post-verdict routing policy
func NextActionFor(result VerificationResult) NextAction {
	switch {
	case result.Matched && result.AutoAssigned:
		return ActionAutoAdvance
	case !result.Matched && result.ApprovalRequestID != nil:
		return ActionShowApprovalReference
	default:
		return ActionOfferApprovalRequest
	}
}
