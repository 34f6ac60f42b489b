package models

// ExtractionResult is the well-formed outcome the extractor hands back to
// the batch worker. Strategies never fail past their boundary: any failure
// is converted into a result with Status=error and a descriptive message.
type ExtractionResult struct {
	Status            UploadStatus
	TextContent       string
	GeneratedImageURL string
	TokensUsed        int
	Error             string
}

// ErrorResult builds a zero-cost error result with the given message.
func ErrorResult(msg string) ExtractionResult {
	return ExtractionResult{Status: StatusError, Error: msg}
}

// RunSummary aggregates one batch worker invocation.
type RunSummary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Idle reports whether the run found nothing to claim.
func (s RunSummary) Idle() bool {
	return s.Attempted == 0
}
