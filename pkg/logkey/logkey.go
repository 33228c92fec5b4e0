package logkey

// Common keys used for structured logging across the service.
const (
	TraceID = "Trace ID"
	ERROR   = "Error"
)
