package logging

// Standardized attribute keys. Using constants keeps log scraping stable.
const (
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldImpact     = "impact"
	FieldJobID      = "job_id"
	FieldJobTitle   = "job_title"
	FieldStatus     = "status"
	FieldURL        = "url"
	FieldExitCode   = "exit_code"
	FieldFilePath   = "file_path"
	FieldQueueDepth = "queue_depth"
)
