package dropship

import (
	"fmt"
	"net/http"

	"github.com/supplysync/backend/internal/domain/supplier"
)

// maxErrorBodyLength bounds the response text kept on an HTTPError
const maxErrorBodyLength = 2000

// vendorRateLimitCodes are body "code" values the supplier uses for throttling
var vendorRateLimitCodes = map[string]struct{}{
	"1600200": {},
	"1600201": {},
}

// HTTPError is a request that kept failing after local retries.
// It carries the last response for diagnostics and matches ErrTransientHTTP.
type HTTPError struct {
	StatusCode int
	Reason     string
	Body       string
}

func newHTTPError(status int, body []byte) *HTTPError {
	text := string(body)
	if r := []rune(text); len(r) > maxErrorBodyLength {
		text = string(r[:maxErrorBodyLength])
	}
	return &HTTPError{
		StatusCode: status,
		Reason:     http.StatusText(status),
		Body:       text,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s :: %s", e.StatusCode, e.Reason, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return supplier.ErrTransientHTTP
}
