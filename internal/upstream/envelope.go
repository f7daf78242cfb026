package upstream

import (
	"fmt"

	"github.com/tidwall/gjson"
)

var envelopeFields = []string{"error", "message", "Message"}

// ErrorMessage pulls a human-readable message out of a JSON error body,
// preferring error, then message, then Message. Anything else falls back to
// a generic message that carries the status code.
func ErrorMessage(body []byte, statusCode int) string {
	if gjson.ValidBytes(body) {
		for _, field := range envelopeFields {
			v := gjson.GetBytes(body, field)
			if v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", statusCode)
}
