package logging

// LogEntry represents a structured log record.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// RunID correlates the entry with one optimizer run.
	RunID string

	// General structured data
	Fields map[string]interface{}
}
