package onboardingapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core/onboarding"
)

func TestClient_CompleteOnboarding(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMsg     string
		wantRejects *onboarding.RejectedError
	}{
		{name: "success", status: http.StatusOK, body: `{"message":"School setup completed successfully!"}`, wantMsg: "School setup completed successfully!"},
		{name: "success without body", status: http.StatusOK},
		{name: "message", status: http.StatusBadRequest, body: `{"message":"Token expired"}`, wantRejects: &onboarding.RejectedError{StatusCode: 400, Message: "Token expired"}},
		{name: "error", status: http.StatusBadRequest, body: `{"error":"invalid or expired verification token"}`, wantRejects: &onboarding.RejectedError{StatusCode: 400, Message: "invalid or expired verification token"}},
		{name: "field map", status: http.StatusBadRequest, body: `{"schoolName":"this field is required","address":"this field is required"}`, wantRejects: &onboarding.RejectedError{StatusCode: 400, Message: "address: this field is required; schoolName: this field is required"}},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantRejects: &onboarding.RejectedError{StatusCode: 502}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got onboarding.Payload
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/onboarding/complete", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			payload := onboarding.NewPayload(onboarding.Draft{SchoolName: "Green Hill", Address: "1 Main St"}, "tok")
			msg, err := NewClient(srv.URL+"/", nil).CompleteOnboarding(context.Background(), payload)
			assert.Equal(t, payload, got)

			if tt.wantRejects != nil {
				rejected, ok := errors.Cause(err).(*onboarding.RejectedError)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantRejects, rejected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL, nil).CompleteOnboarding(context.Background(), onboarding.Payload{})
	require.Error(t, err)
	_, rejected := errors.Cause(err).(*onboarding.RejectedError)
	assert.False(t, rejected)
}
