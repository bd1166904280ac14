package experiment

// ProgressCallback is called while an experiment runs.
type ProgressCallback func(event ProgressEvent)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Type     ProgressEventType
	Fold     string
	Index    int
	Total    int
	Accuracy float64
	Message  string
	Error    error
}

// ProgressEventType identifies the type of progress event.
type ProgressEventType int

const (
	EventFoldStart ProgressEventType = iota
	EventFoldComplete
	EventError
)
