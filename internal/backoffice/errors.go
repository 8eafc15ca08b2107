package backoffice

import (
	"fmt"
	"net/http"

	"github.com/odyssey-erp/pos-backoffice/internal/platform/resilience"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// ExternalServiceError indicates the POS backend failed or answered unexpectedly.
type ExternalServiceError struct {
	Operation string
	Status    int
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backoffice: %s: backend returned status %d: %v", e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("backoffice: %s: %v", e.Operation, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// statusError classifies a non-2xx response. Only 5xx and 429 are worth retrying.
func statusError(status int, body string) error {
	switch {
	case status == http.StatusNotFound:
		return resilience.Permanent(fmt.Errorf("%w: %s", shared.ErrNotFound, body))
	case status == http.StatusConflict:
		return resilience.Permanent(fmt.Errorf("%w: %s", shared.ErrConflict, body))
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &httpStatusError{status: status, body: body}
	default:
		return resilience.Permanent(&httpStatusError{status: status, body: body})
	}
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return http.StatusText(e.status)
	}
	return e.body
}
