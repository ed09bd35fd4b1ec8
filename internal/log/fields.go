package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldTemplateID  = "template_id"
	FieldDescription = "description"
	FieldAmountCents = "amount_cents"
	FieldMonth       = "month"
	FieldStartMonth  = "start_month"
	FieldMonths      = "months"
	FieldRevision    = "revision"
	FieldDiagnostics = "diagnostics"
	FieldMethodName  = "payment_method"
)

const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentTemplate   = "template"
	ComponentProjection = "projection"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpOverride = "override"
	OpSplit    = "split"
	OpProject  = "project"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds a set of structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithTemplate(id, description string, amountCents int64) LogFields {
	f[FieldTemplateID] = id
	f[FieldDescription] = description
	f[FieldAmountCents] = amountCents
	return f
}

func (f LogFields) WithProjection(start string, months int, revision int64) LogFields {
	f[FieldStartMonth] = start
	f[FieldMonths] = months
	f[FieldRevision] = revision
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, clientIP string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if clientIP != "" {
		f[FieldClientIP] = clientIP
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
