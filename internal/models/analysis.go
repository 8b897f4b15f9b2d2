package models

// AnalysisResult is the structured output of one analysis invocation.
// It is produced once, used to seed BuildConfiguration defaults, and
// never mutated after creation.
type AnalysisResult struct {
	SuggestedPackage string   `json:"suggested_package"`
	DetectedName     string   `json:"detected_name"`
	IsPWA            bool     `json:"is_pwa"`
	Permissions      []string `json:"permissions"`
	SecurityWarnings []string `json:"security_warnings"`
}
