package outcome

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/rs/zerolog"
)

// Kind tags the variant held by an Outcome
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindSuccessEmpty
	KindValidationFailure
	KindAuthFailure
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindSuccessEmpty:
		return "success_empty"
	case KindValidationFailure:
		return "validation_failure"
	case KindAuthFailure:
		return "auth_failure"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Reasons carried by AuthFailure outcomes
const (
	ReasonNoActiveSession = "no active session"
	ReasonSessionExpired  = "session expired"
)

// ReasonBodyTooLarge is the TransportFailure message for a body over the read limit
const ReasonBodyTooLarge = "response body too large"

// FieldErrors maps a backend field key to its messages
type FieldErrors map[string][]string

// Messages flattens every field's messages in key order
func (f FieldErrors) Messages() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var messages []string
	for _, k := range keys {
		messages = append(messages, f[k]...)
	}
	return messages
}

// Outcome is the normalized result of an authenticated call. Exactly one
// variant is set; HTTP status codes are kept for diagnostics only.
type Outcome struct {
	Kind    Kind
	Payload json.RawMessage // KindSuccess
	Fields  FieldErrors     // KindValidationFailure
	Message string          // failure reason, backend detail or flattened field messages
	status  int
}

func Success(payload json.RawMessage) Outcome {
	return Outcome{Kind: KindSuccess, Payload: payload}
}

// SuccessEmpty is a success without a usable body. status is retained for logs.
func SuccessEmpty(status int) Outcome {
	return Outcome{Kind: KindSuccessEmpty, status: status}
}

func ValidationFailure(fields FieldErrors, message string) Outcome {
	if fields == nil {
		fields = FieldErrors{}
	}
	if message == "" {
		message = strings.Join(fields.Messages(), ", ")
	}
	return Outcome{Kind: KindValidationFailure, Fields: fields, Message: message}
}

func AuthFailure(reason string) Outcome {
	return Outcome{Kind: KindAuthFailure, Message: reason}
}

func TransportFailure(message string) Outcome {
	return Outcome{Kind: KindTransportFailure, Message: message}
}

func (o Outcome) withStatus(status int) Outcome {
	o.status = status
	return o
}

// OK is true for both success variants
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess || o.Kind == KindSuccessEmpty
}

// Decode unmarshals a Success payload into v. SuccessEmpty leaves v untouched.
func (o Outcome) Decode(v any) error {
	switch o.Kind {
	case KindSuccess:
		if err := json.Unmarshal(o.Payload, v); err != nil {
			return errors.Wrapf(errors.ErrUnrecognizedShape, "decode payload: %s", err.Error())
		}
		return nil
	case KindSuccessEmpty:
		return nil
	default:
		return o.Err()
	}
}

// Err returns nil for success variants and an *Error otherwise
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &Error{Kind: o.Kind, Message: o.Message, Fields: o.Fields}
}

func (o Outcome) String() string {
	if o.Message == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Message)
}

// MarshalZerologObject logs the variant together with the diagnostic status
func (o Outcome) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", o.Kind.String())
	if o.status != 0 {
		e.Int("status", o.status)
	}
	if o.Message != "" {
		e.Str("message", o.Message)
	}
	if len(o.Fields) > 0 {
		fields := make([]string, 0, len(o.Fields))
		for k := range o.Fields {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		e.Strs("fields", fields)
	}
}

// Error is the error form of a failed Outcome
type Error struct {
	Kind    Kind
	Message string
	Fields  FieldErrors
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Unwrap maps the variant onto the package error taxonomy
func (e *Error) Unwrap() []error {
	switch e.Kind {
	case KindAuthFailure:
		if e.Message == ReasonNoActiveSession {
			return []error{errors.ErrAuthFailure, errors.ErrSessionMissing}
		}
		if e.Message == ReasonSessionExpired {
			return []error{errors.ErrAuthFailure, errors.ErrSessionExpired}
		}
		return []error{errors.ErrAuthFailure}
	case KindValidationFailure:
		return []error{errors.ErrValidation}
	case KindTransportFailure:
		return []error{errors.ErrTransport}
	default:
		return nil
	}
}

// FromError recovers the Outcome form of err, if it carries one
func FromError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
