package observability

// Span names.
const (
	SpanHTTPRequest = "http.request"
)

// Attribute keys.
const (
	AttrHTTPMethod       = "http.method"
	AttrHTTPRoute        = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrLLMProvider      = "llm.provider"
	AttrLLMModel         = "llm.model"
	AttrErrorType        = "error.type"
)

// Metric names. The Prometheus exporter appends unit and _total suffixes.
const (
	MetricDebatesStarted     = "debater_debates_started"
	MetricDebatesCompleted   = "debater_debates_completed"
	MetricDebatesActive      = "debater_debates_active"
	MetricTurnsCompleted     = "debater_turns_completed"
	MetricGenerationErrors   = "debater_generation_errors"
	MetricGenerationDuration = "debater_generation_duration"
	MetricHTTPRequests       = "debater_http_requests"
	MetricHTTPDuration       = "debater_http_request_duration"
)

const meterName = "github.com/kadirpekel/debater"
