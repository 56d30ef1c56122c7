package outcome

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	detailKey         = "detail"
	nonFieldErrorsKey = "non_field_errors"

	// maxBodySize caps how much of a response body is read for classification
	maxBodySize = 10 << 20
)

// Classify reads and closes resp.Body and maps the response onto an Outcome:
//
//	401          -> AuthFailure("session expired")
//	204          -> SuccessEmpty, body ignored
//	other non-2xx-> ValidationFailure from the JSON body, TransportFailure("Error: <status>") if unparseable
//	2xx JSON     -> Success(payload)
//	2xx other    -> SuccessEmpty, status kept for diagnostics
//	oversized    -> TransportFailure, the body is never truncated into a success
func Classify(resp *http.Response) Outcome {
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized:
		return AuthFailure(ReasonSessionExpired).withStatus(status)
	case status == http.StatusNoContent:
		return SuccessEmpty(status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		if status >= 200 && status < 300 {
			return SuccessEmpty(status)
		}
		return TransportFailure(StatusMessage(status)).withStatus(status)
	}
	if len(body) > maxBodySize {
		log.Warn().Int("status", status).Int("limit", maxBodySize).Msg("Response body exceeds size limit")
		return TransportFailure(ReasonBodyTooLarge).withStatus(status)
	}

	if status < 200 || status >= 300 {
		fields, message, ok := ParseErrorBody(body)
		if !ok {
			return TransportFailure(StatusMessage(status)).withStatus(status)
		}
		if message == "" {
			message = StatusMessage(status)
		}
		return ValidationFailure(fields, message).withStatus(status)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return SuccessEmpty(status)
	}
	return Success(json.RawMessage(trimmed)).withStatus(status)
}

// ClassifyTransportError turns a failed round trip into a TransportFailure
func ClassifyTransportError(ctx context.Context, err error) Outcome {
	switch ctx.Err() {
	case context.Canceled:
		return TransportFailure("request canceled")
	case context.DeadlineExceeded:
		return TransportFailure("request timed out")
	}
	return TransportFailure(fmt.Sprintf("request failed: %s", err.Error()))
}

// StatusMessage is the fallback message for a status without a usable body
func StatusMessage(status int) string {
	return fmt.Sprintf("Error: %d", status)
}

// ParseErrorBody extracts field errors from a backend error body. The returned
// message is "detail" when present, otherwise every field message joined by ", ".
// ok is false when the body is not JSON.
func ParseErrorBody(body []byte) (fields FieldErrors, message string, ok bool) {
	var raw any
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		return nil, "", false
	}

	fields = FieldErrors{}
	switch v := raw.(type) {
	case map[string]any:
		for key, value := range v {
			if key == detailKey {
				message = strings.Join(flattenMessages(value), ", ")
				continue
			}
			if msgs := flattenMessages(value); len(msgs) > 0 {
				fields[key] = msgs
			}
		}
	case []any:
		if msgs := flattenMessages(v); len(msgs) > 0 {
			fields[nonFieldErrorsKey] = msgs
		}
	case string:
		message = v
	}

	if message == "" {
		message = strings.Join(fields.Messages(), ", ")
	}
	return fields, message, true
}

func flattenMessages(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flattenMessages(item)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flattenMessages(v[k])...)
		}
		return out
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return []string{string(b)}
	}
}

// NormalizeList accepts either a bare JSON array or a paginated object with a
// "results" array and returns the items. Any other shape is rejected.
func NormalizeList(payload json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.Wrapf(errors.ErrUnrecognizedShape, "empty payload")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Wrapf(errors.ErrUnrecognizedShape, "array: %s", err.Error())
		}
		return items, nil
	case '{':
		var page struct {
			Results *[]json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, errors.Wrapf(errors.ErrUnrecognizedShape, "object: %s", err.Error())
		}
		if page.Results == nil {
			return nil, errors.Wrapf(errors.ErrUnrecognizedShape, "object without results array")
		}
		return *page.Results, nil
	}
	return nil, errors.Wrapf(errors.ErrUnrecognizedShape, "unexpected JSON value")
}

// DecodeList normalizes a Success outcome's payload and decodes every item into T.
// SuccessEmpty gives an empty list.
func DecodeList[T any](o Outcome) ([]T, error) {
	switch o.Kind {
	case KindSuccessEmpty:
		return []T{}, nil
	case KindSuccess:
	default:
		return nil, o.Err()
	}

	items, err := NormalizeList(o.Payload)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, errors.Wrapf(errors.ErrUnrecognizedShape, "item %d: %s", i, err.Error())
		}
		out = append(out, v)
	}
	return out, nil
}
