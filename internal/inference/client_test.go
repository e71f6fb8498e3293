package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInferSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Server failed to decode request: %v", err)
		}

		if req.ValidLength != 112 {
			t.Errorf("Expected valid length 112, got %d", req.ValidLength)
		}

		json.NewEncoder(w).Encode(Response{
			RequestID: req.RequestID,
			Logits:    [][]float64{{1, 2}, {3, 4}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.Infer(context.Background(), &Request{
		RequestID:    "req-1",
		NMels:        64,
		PaddedFrames: 112,
		ValidLength:  112,
		Features:     make([]float64, 64*112),
	})
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	if len(resp.Logits) != 2 {
		t.Errorf("Expected 2 timesteps, got %d", len(resp.Logits))
	}

	stats := client.GetStats()
	if stats.SuccessRequests != 1 || stats.TotalRequests != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestInferTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Infer(context.Background(), &Request{RequestID: "req-2"})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}

	stats := client.GetStats()
	if stats.TimeoutRequests != 1 {
		t.Errorf("Expected 1 timeout recorded, got %d", stats.TimeoutRequests)
	}
}

func TestInferServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Infer(context.Background(), &Request{}); err == nil {
		t.Error("Expected error for HTTP 500 response")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for empty endpoint")
	}
}
