package outcome_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    outcome.Kind
		message string
		fields  outcome.FieldErrors
	}{
		{name: "401 is auth failure", status: 401, body: `{"detail":"Given token not valid"}`, kind: outcome.KindAuthFailure, message: outcome.ReasonSessionExpired},
		{name: "204 ignores body", status: 204, body: `not json at all`, kind: outcome.KindSuccessEmpty},
		{name: "204 with json body", status: 204, body: `{"id":1}`, kind: outcome.KindSuccessEmpty},
		{name: "200 json", status: 200, body: `{"id":1}`, kind: outcome.KindSuccess},
		{name: "201 json array", status: 201, body: `[1,2]`, kind: outcome.KindSuccess},
		{name: "200 unparseable", status: 200, body: `<html>`, kind: outcome.KindSuccessEmpty},
		{name: "200 empty", status: 200, body: ``, kind: outcome.KindSuccessEmpty},
		{
			name: "400 field errors", status: 400, body: `{"email":["Enter a valid email address."]}`,
			kind: outcome.KindValidationFailure, message: "Enter a valid email address.",
			fields: outcome.FieldErrors{"email": {"Enter a valid email address."}},
		},
		{
			name: "403 detail wins", status: 403, body: `{"detail":"You do not have permission.","code":"forbidden"}`,
			kind: outcome.KindValidationFailure, message: "You do not have permission.",
			fields: outcome.FieldErrors{"code": {"forbidden"}},
		},
		{
			name: "400 multiple fields flattened", status: 400, body: `{"titulo":["Too long."],"cantidad":["Must be higher.","Must be positive."]}`,
			kind: outcome.KindValidationFailure, message: "Must be higher., Must be positive., Too long.",
			fields: outcome.FieldErrors{"titulo": {"Too long."}, "cantidad": {"Must be higher.", "Must be positive."}},
		},
		{
			name: "400 bare list", status: 400, body: `["Auction is closed."]`,
			kind: outcome.KindValidationFailure, message: "Auction is closed.",
			fields: outcome.FieldErrors{"non_field_errors": {"Auction is closed."}},
		},
		{name: "404 empty object", status: 404, body: `{}`, kind: outcome.KindValidationFailure, message: "Error: 404", fields: outcome.FieldErrors{}},
		{name: "500 html", status: 500, body: `<h1>Server Error</h1>`, kind: outcome.KindTransportFailure, message: "Error: 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := outcome.Classify(response(tt.status, tt.body))

			require.Equal(t, tt.kind, o.Kind)
			require.Equal(t, tt.message, o.Message)
			if tt.fields != nil {
				require.Equal(t, tt.fields, o.Fields)
			}
		})
	}
}

func TestClassify_OversizedBodyIsTransportFailure(t *testing.T) {
	body := "[" + strings.Repeat("1,", 6<<20) + "1]"

	o := outcome.Classify(response(http.StatusOK, body))
	require.Equal(t, outcome.KindTransportFailure, o.Kind)
	require.Equal(t, outcome.ReasonBodyTooLarge, o.Message)

	_, err := outcome.DecodeList[int](o)
	require.True(t, errors.Is(err, errors.ErrTransport))
}

func TestClassify_SuccessPayloadDecodes(t *testing.T) {
	o := outcome.Classify(response(200, ` {"id":7,"username":"alice"} `))
	require.True(t, o.OK())

	var got struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, o.Decode(&got))
	require.Equal(t, 7, got.ID)
	require.Equal(t, "alice", got.Username)
}

func TestOutcome_Err(t *testing.T) {
	require.NoError(t, outcome.Success(json.RawMessage(`{}`)).Err())
	require.NoError(t, outcome.SuccessEmpty(204).Err())

	err := outcome.AuthFailure(outcome.ReasonNoActiveSession).Err()
	require.ErrorIs(t, err, errors.ErrAuthFailure)
	require.ErrorIs(t, err, errors.ErrSessionMissing)

	err = outcome.AuthFailure(outcome.ReasonSessionExpired).Err()
	require.ErrorIs(t, err, errors.ErrSessionExpired)
	require.NotErrorIs(t, err, errors.ErrSessionMissing)

	err = outcome.ValidationFailure(outcome.FieldErrors{"email": {"bad"}}, "").Err()
	require.ErrorIs(t, err, errors.ErrValidation)
	require.Equal(t, "bad", err.Error())
	oe, ok := outcome.FromError(errors.Wrapf(err, "update profile"))
	require.True(t, ok)
	require.Equal(t, outcome.FieldErrors{"email": {"bad"}}, oe.Fields)

	require.ErrorIs(t, outcome.TransportFailure("boom").Err(), errors.ErrTransport)
}

func TestOutcome_DecodeFailure(t *testing.T) {
	var v map[string]any
	err := outcome.AuthFailure(outcome.ReasonSessionExpired).Decode(&v)
	require.ErrorIs(t, err, errors.ErrSessionExpired)

	err = outcome.Success(json.RawMessage(`[1]`)).Decode(&v)
	require.ErrorIs(t, err, errors.ErrUnrecognizedShape)
}

func TestClassifyTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := outcome.ClassifyTransportError(ctx, context.Canceled)
	require.Equal(t, outcome.KindTransportFailure, o.Kind)
	require.Equal(t, "request canceled", o.Message)

	o = outcome.ClassifyTransportError(context.Background(), io.ErrUnexpectedEOF)
	require.Contains(t, o.Message, "unexpected EOF")
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{name: "bare array", payload: `[{"id":1},{"id":2}]`, want: 2},
		{name: "paginated", payload: `{"count":3,"next":null,"results":[{"id":1},{"id":2},{"id":3}]}`, want: 3},
		{name: "empty results", payload: `{"results":[]}`, want: 0},
		{name: "object without results", payload: `{"id":1}`, wantErr: true},
		{name: "results not array", payload: `{"results":{"id":1}}`, wantErr: true},
		{name: "scalar", payload: `42`, wantErr: true},
		{name: "empty", payload: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := outcome.NormalizeList(json.RawMessage(tt.payload))
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrUnrecognizedShape)
				return
			}
			require.NoError(t, err)
			require.Len(t, items, tt.want)
		})
	}
}

func TestDecodeList(t *testing.T) {
	type item struct {
		ID int `json:"id"`
	}

	got, err := outcome.DecodeList[item](outcome.Success(json.RawMessage(`{"results":[{"id":4}]}`)))
	require.NoError(t, err)
	require.Equal(t, []item{{ID: 4}}, got)

	got, err = outcome.DecodeList[item](outcome.SuccessEmpty(200))
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = outcome.DecodeList[item](outcome.TransportFailure("Error: 502"))
	require.ErrorIs(t, err, errors.ErrTransport)
}
