package llm

// Exports for testing.
var (
	WithClient       = withClient
	ClassifyError    = classifyError
	IsReasoningModel = isReasoningModel
)
