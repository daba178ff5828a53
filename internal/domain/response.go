package domain

// HeaderPair is a single captured response header.
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StoredResponse is an HTTP response snapshot captured once per
// (owner, idempotency key) and replayed verbatim on duplicate submission.
// Immutable once saved.
type StoredResponse struct {
	StatusCode int          `json:"status_code"`
	Headers    []HeaderPair `json:"headers"`
	Body       []byte       `json:"body"`
}
