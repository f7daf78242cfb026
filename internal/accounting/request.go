package accounting

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"
)

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Query is an ordered list of query parameters. Order is kept when encoding.
type Query []Param

// Add appends key with value converted to a string. Times are rendered as
// dates.
func (q Query) Add(key string, value interface{}) Query {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case time.Time:
		s = v.Format(time.DateOnly)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return append(q, Param{Key: key, Value: s})
}

// Encode renders the parameters as key=value pairs joined by '&'.
func (q Query) Encode() string {
	parts := make([]string, 0, len(q))
	for _, p := range q {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// RequestDescriptor describes one resource call.
type RequestDescriptor struct {
	Method string
	Path   string
	Query  Query
	// RawQuery is appended verbatim after Query. Used when forwarding.
	RawQuery string
	Body     interface{}
}

func (rd RequestDescriptor) target(baseURL string) string {
	u := baseURL + rd.Path
	qs := rd.Query.Encode()
	if rd.RawQuery != "" {
		if qs != "" {
			qs += "&"
		}
		qs += rd.RawQuery
	}
	if qs != "" {
		u += "?" + qs
	}
	return u
}

func (rd RequestDescriptor) encodeBody() ([]byte, error) {
	if rd.Body == nil {
		return nil, nil
	}
	b, err := json.Marshal(rd.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return b, nil
}

// PatchOperation is one JSON-Patch style operation.
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// Replace sets the value at path.
func Replace(path string, value interface{}) PatchOperation {
	return PatchOperation{Op: "replace", Path: path, Value: value}
}

// Add adds a value at path.
func Add(path string, value interface{}) PatchOperation {
	return PatchOperation{Op: "add", Path: path, Value: value}
}

// Remove removes the value at path.
func Remove(path string) PatchOperation {
	return PatchOperation{Op: "remove", Path: path}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
