package billing

// UsageAction represents a billable action performed by a user
type UsageAction string

const (
	// ActionExtractPDF is the extraction of text from an uploaded PDF
	ActionExtractPDF UsageAction = "EXTRACT_PDF"

	// ActionRoastAnalysis is a full resume roast analysis
	ActionRoastAnalysis UsageAction = "ROAST_ANALYSIS"

	// ActionCoverLetter is the generation of a cover letter
	ActionCoverLetter UsageAction = "COVER_LETTER_GENERATION"
)

// AllActions returns every defined usage action
func AllActions() []UsageAction {
	return []UsageAction{ActionExtractPDF, ActionRoastAnalysis, ActionCoverLetter}
}

// String returns the string representation of UsageAction
func (a UsageAction) String() string {
	return string(a)
}

// IsValid returns true if the usage action is valid
func (a UsageAction) IsValid() bool {
	switch a {
	case ActionExtractPDF, ActionRoastAnalysis, ActionCoverLetter:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the action
func (a UsageAction) DisplayName() string {
	switch a {
	case ActionExtractPDF:
		return "PDF Extraction"
	case ActionRoastAnalysis:
		return "Resume Roast"
	case ActionCoverLetter:
		return "Cover Letter"
	default:
		return string(a)
	}
}
