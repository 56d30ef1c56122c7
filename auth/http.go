package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/users"
)

// call issues a JSON request on behalf of the controller. The bearer is passed
// explicitly because login fetches the profile before any session exists.
func (c *Controller) call(ctx context.Context, method, url, accessToken string, body any) outcome.Outcome {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return outcome.TransportFailure("encode request: " + err.Error())
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return outcome.TransportFailure("build request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return outcome.ClassifyTransportError(ctx, err)
	}
	o := outcome.Classify(resp)
	c.logger.Debug().Str("method", method).Str("url", url).Object("outcome", o).Msg("Session call")
	return o
}

func (c *Controller) fetchProfile(ctx context.Context, accessToken string) (users.Profile, error) {
	o := c.call(ctx, http.MethodGet, c.routes.UserProfile(), accessToken, nil)
	if !o.OK() {
		return users.Profile{}, o.Err()
	}
	var profile users.Profile
	if o.Kind == outcome.KindSuccessEmpty {
		return profile, outcome.TransportFailure("empty profile response").Err()
	}
	if err := o.Decode(&profile); err != nil {
		return users.Profile{}, err
	}
	return profile, nil
}
