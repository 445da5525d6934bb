package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldRemote   = "remote_addr"

	// Proxy fields
	FieldURL       = "url"
	FieldUpstream  = "upstream"
	FieldByteRange = "byterange"
	FieldFormat    = "format"
	FieldDRMMethod = "drm_method"
)
