package upstream

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient creates the shared HTTP client. Per-call deadlines are set
// through request contexts; the client timeout is only a backstop.
func NewHTTPClient() HTTPClient {
	return &http.Client{
		Timeout: 60 * time.Second,
	}
}

// SubscriptionKeyHeader carries the subscription key on every upstream call,
// token exchange included.
const SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// StatusText returns the reason phrase of resp, e.g. "Not Found".
func StatusText(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if text := strings.TrimPrefix(resp.Status, prefix); text != "" && text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
