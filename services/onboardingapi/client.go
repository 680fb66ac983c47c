// Package onboardingapi calls the onboarding completion endpoint of the API.
package onboardingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/onboarding"
)

const completePath = "/v1/onboarding/complete"

// Client is an onboarding.Completer over HTTP.
type Client struct {
	url    string
	client *http.Client
}

var _ onboarding.Completer = (*Client)(nil)

// NewClient returns a client of the API at baseURL. A nil httpClient uses a client with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: core.JoinURL(baseURL, completePath), client: httpClient}
}

func (c *Client) CompleteOnboarding(ctx context.Context, payload onboarding.Payload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "encoding payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling onboarding endpoint")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "reading response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &onboarding.RejectedError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	var res struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &res)
	return res.Message, nil
}

// errorMessage extracts the message of an error body: {"message": ...}, {"error": ...}
// or a field map, whose entries are joined in key order.
func errorMessage(data []byte) string {
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if msg, ok := body[key].(string); ok && msg != "" {
			return msg
		}
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		if _, ok := body[k].(string); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+body[k].(string))
	}
	return strings.Join(parts, "; ")
}
