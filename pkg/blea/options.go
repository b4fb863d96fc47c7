package blea

// AnalyzeOptions configures Analyze.
type AnalyzeOptions struct {
	// Inspect attaches driver diagnostics (MAC, model, flags) to each
	// decoded reading.
	Inspect bool
}
