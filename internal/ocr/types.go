package ocr

// Read operation terminal and transient statuses as reported by the service.
const (
	StatusNotStarted = "notStarted"
	StatusRunning    = "running"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// ReadOperationResult is the status document returned when polling a read
// operation.
type ReadOperationResult struct {
	Status        string        `json:"status"`
	AnalyzeResult AnalyzeResult `json:"analyzeResult"`
}

// AnalyzeResult holds the paginated recognition output of a finished job.
type AnalyzeResult struct {
	ReadResults []ReadResult `json:"readResults"`
}

// ReadResult is one page of recognized lines.
type ReadResult struct {
	Page  int    `json:"page"`
	Lines []Line `json:"lines"`
}

// Line is a single recognized text line.
type Line struct {
	Text string `json:"text"`
}
