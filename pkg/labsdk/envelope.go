package labsdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// legacySuccessCodes are the string codes the legacy envelope uses for success.
var legacySuccessCodes = []string{"SUCCESS", "CREATED", "UPDATED", "DELETED"}

// Result is the canonical success shape produced by Normalize.
type Result struct {
	// Code is always 200 for a normalized success.
	Code int `json:"code"`

	Message string `json:"message,omitempty"`

	// Data is the payload. Paginated list responses are rewritten to
	// {"list": [...], "total": n, "page": p, "page_size": s}.
	Data json.RawMessage `json:"data,omitempty"`

	// Raw is the response body as received.
	Raw json.RawMessage `json:"-"`
}

// Decode unmarshals Data into v. A missing or null payload leaves v untouched.
func (r *Result) Decode(v any) error {
	if isNull(r.Data) {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Page is a decoded paginated list.
type Page[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page,omitempty"`
	PageSize int   `json:"page_size,omitempty"`
}

// DecodePage decodes a normalized list payload. A bare JSON array (an
// unpaginated list endpoint) becomes a single page holding every item.
func DecodePage[T any](r *Result) (*Page[T], error) {
	page := &Page[T]{}
	if isArray(r.Data) {
		if err := json.Unmarshal(r.Data, &page.List); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		page.Total = int64(len(page.List))
		return page, nil
	}
	if isNull(r.Data) {
		return page, nil
	}

	var raw struct {
		List     json.RawMessage `json:"list"`
		Total    json.RawMessage `json:"total"`
		Page     json.RawMessage `json:"page"`
		PageSize json.RawMessage `json:"page_size"`
	}
	if err := json.Unmarshal(r.Data, &raw); err != nil {
		return nil, fmt.Errorf("decode response data: %w", err)
	}
	if !isNull(raw.List) {
		if err := json.Unmarshal(raw.List, &page.List); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
	}
	page.Total = lenientInt(raw.Total)
	page.Page = int(lenientInt(raw.Page))
	page.PageSize = int(lenientInt(raw.PageSize))
	return page, nil
}

// lenientInt reads a JSON number or numeric string, truncating fractions.
// Anything else is 0.
func lenientInt(raw json.RawMessage) int64 {
	s := scalarString(raw)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// Normalize resolves the two backend envelope styles into one outcome.
//
// Modern bodies carry a boolean "success". Legacy bodies carry a "code" that
// is either the number 200 or one of SUCCESS, CREATED, UPDATED, DELETED on
// success. Any other shape is a failure. Failures come back as an *APIError
// of KindBusiness carrying the body and its message.
func Normalize(body []byte) (*Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, businessError(body, "")
	}

	message := scalarString(fields["message"])

	if ok, isBool := boolField(fields["success"]); isBool {
		if !ok {
			return nil, businessError(body, message)
		}
		return successResult(fields, body, message)
	}

	if legacySuccess(fields["code"]) {
		return successResult(fields, body, message)
	}
	return nil, businessError(body, message)
}

func successResult(fields map[string]json.RawMessage, body []byte, message string) (*Result, error) {
	data := fields["data"]

	if p, ok := fields["pagination"]; ok && !isNull(p) && isArray(data) {
		rewritten, err := listPayload(data, p)
		if err != nil {
			return nil, err
		}
		data = rewritten
	}

	return &Result{
		Code:    200,
		Message: message,
		Data:    data,
		Raw:     body,
	}, nil
}

// listPayload wraps a paginated array as {list,total,page,page_size}. The
// pagination values are copied as sent; total is 0 only when absent or null.
// A pagination value that is not an object contributes nothing beyond total.
func listPayload(list, pagination json.RawMessage) (json.RawMessage, error) {
	var pg map[string]json.RawMessage
	if err := json.Unmarshal(pagination, &pg); err != nil {
		pg = nil
	}

	out := map[string]json.RawMessage{
		"list":  list,
		"total": json.RawMessage("0"),
	}
	if total := pg["total"]; !isNull(total) {
		out["total"] = total
	}
	for _, key := range []string{"page", "page_size"} {
		if v, ok := pg[key]; ok {
			out[key] = v
		}
	}

	rewritten, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode list payload: %w", err)
	}
	return rewritten, nil
}

func businessError(body []byte, message string) *APIError {
	notice := message
	if notice == "" {
		notice = msgRequestFailed
	}
	return &APIError{
		Kind:    KindBusiness,
		Message: message,
		Notice:  notice,
		Body:    body,
	}
}

func legacySuccess(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n == 200
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return slices.Contains(legacySuccessCodes, s)
	}
	return false
}

// boolField reports the value of raw and whether raw is a JSON boolean at all.
func boolField(raw json.RawMessage) (value, isBool bool) {
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// scalarString renders a JSON string or number as text. Anything else is "".
func scalarString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
