package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeProvider is a minimal provider for client tests.
type fakeProvider struct {
	url string
}

func (f *fakeProvider) Name() string                  { return "fake" }
func (f *fakeProvider) BuildURL(_, _ string) string   { return f.url }
func (f *fakeProvider) SetHeaders(_ *http.Request)    {}
func (f *fakeProvider) BuildRequestBody(_ string, _ []Message, _ *float64, _ int) ([]byte, error) {
	return []byte(`{}`), nil
}
func (f *fakeProvider) ParseResponse(body []byte, model string) (*Response, error) {
	return &Response{Content: string(body), Model: model}, nil
}

func TestClientComplete(t *testing.T) {
	t.Run("success sets request ID", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		RegisterProvider(&fakeProvider{url: srv.URL})
		c := NewClient(EndpointConfig{Provider: "fake", Model: "m"})

		resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "ok" {
			t.Errorf("expected content ok, got %q", resp.Content)
		}
		if resp.RequestID == "" {
			t.Error("expected non-empty request ID")
		}
	})

	t.Run("empty messages is fatal", func(t *testing.T) {
		c := NewClient(EndpointConfig{Provider: "fake", Model: "m"})
		_, err := c.Complete(context.Background(), Request{})
		if !IsFatal(err) {
			t.Errorf("expected fatal error, got %v", err)
		}
	})

	t.Run("unknown provider is fatal", func(t *testing.T) {
		c := NewClient(EndpointConfig{Provider: "nope", Model: "m"})
		_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
		if !IsFatal(err) {
			t.Errorf("expected fatal error, got %v", err)
		}
	})
}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		status      int
		transient   bool
		rateLimited bool
	}{
		{http.StatusTooManyRequests, true, true},
		{http.StatusServiceUnavailable, true, false},
		{http.StatusBadGateway, true, false},
		{http.StatusInternalServerError, true, false},
		{http.StatusUnauthorized, false, false},
		{http.StatusBadRequest, false, false},
		{http.StatusTeapot, false, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("status %d", tc.status), func(t *testing.T) {
			err := classifyHTTPError(tc.status, []byte("body"))
			if IsTransient(err) != tc.transient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tc.transient)
			}
			if IsRateLimited(err) != tc.rateLimited {
				t.Errorf("IsRateLimited = %v, want %v", IsRateLimited(err), tc.rateLimited)
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	base := errors.New("quota exceeded")
	wrapped := NewRateLimitError(base)

	if !errors.Is(wrapped, base) {
		t.Error("rate limit wrapper must unwrap to the original error")
	}
	if !IsTransient(wrapped) {
		t.Error("rate limit errors are transient")
	}

	fatal := NewFatalError(base)
	if !errors.Is(fatal, base) {
		t.Error("fatal wrapper must unwrap to the original error")
	}
	if IsTransient(fatal) {
		t.Error("fatal errors are not transient")
	}
}
