package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldCollection  = "collection"
	FieldEntryID     = "entry_id"
	FieldMonthKey    = "month_key"
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldTotalEarned = "total_earned"
	FieldTotalSpent  = "total_spent"
	FieldTotalProfit = "total_profit"
	FieldBackend     = "backend"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentRollover = "rollover"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpRemove   = "remove"
	OpReplace  = "replace"
	OpLoad     = "load"
	OpPersist  = "persist"
	OpRollover = "rollover"
	OpComplete = "complete_month"
	OpPublish  = "publish"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSummary adds the totals of an archived month
func (f LogFields) WithSummary(monthKey, earned, spent, profit string) LogFields {
	f[FieldMonthKey] = monthKey
	f[FieldTotalEarned] = earned
	f[FieldTotalSpent] = spent
	f[FieldTotalProfit] = profit
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
