package conference

// Status values of a Result envelope.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the envelope returned by a search.
//
// Count is only serialized on success and Message only on error. Warnings
// counts detail pages that could not be fetched or parsed; those records are
// still returned with their listing fields.
type Result struct {
	Status   string   `json:"status"`
	Count    *int     `json:"count,omitempty"`
	Events   []Record `json:"events"`
	Message  string   `json:"message,omitempty"`
	Warnings int      `json:"warnings,omitempty"`
}

// Success wraps records in a success envelope.
func Success(records []Record) Result {
	if records == nil {
		records = []Record{}
	}
	count := len(records)
	return Result{
		Status: StatusSuccess,
		Count:  &count,
		Events: records,
	}
}

// Failure wraps err in an error envelope with no events.
func Failure(err error) Result {
	return Result{
		Status:  StatusError,
		Message: err.Error(),
		Events:  []Record{},
	}
}

// OK reports whether the envelope carries a success status.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}
