package tryon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateTaskSendsGeneratePayload(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"task-123","status":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret-key", HTTPClient: srv.Client()})
	id, err := client.CreateTask(context.Background(), Task{
		HumanImageURL:   "https://cdn.example.com/human.jpg",
		GarmentImageURL: "https://cdn.example.com/garment.jpg",
		Category:        "upper_body",
		Description:     "red jacket",
		WebhookURL:      "https://api.example.com/v1/tryon/webhook?job=abc",
	})
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if id != "task-123" {
		t.Fatalf("id = %q, want task-123", id)
	}
	if gotPath != "/generate" {
		t.Fatalf("path = %q, want /generate", gotPath)
	}
	if gotAuth != "secret-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["model"] != "virtual-try-on" {
		t.Fatalf("model = %v, want virtual-try-on", payload["model"])
	}
	if payload["webhook"] != "https://api.example.com/v1/tryon/webhook?job=abc" {
		t.Fatalf("webhook = %v", payload["webhook"])
	}
	input := payload["input"].(map[string]any)
	if input["human_image"] != "https://cdn.example.com/human.jpg" {
		t.Fatalf("human_image = %v", input["human_image"])
	}
	if input["garment_image"] != "https://cdn.example.com/garment.jpg" {
		t.Fatalf("garment_image = %v", input["garment_image"])
	}
	if input["category"] != "upper_body" {
		t.Fatalf("category = %v", input["category"])
	}
}

func TestCreateTaskSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"code":"insufficient_credits","message":"not enough credits"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret-key", HTTPClient: srv.Client()})
	_, err := client.CreateTask(context.Background(), Task{Category: "upper_body"})
	if err == nil {
		t.Fatalf("expected provider error")
	}
	if !strings.Contains(err.Error(), "not enough credits") {
		t.Fatalf("err = %v, want provider message surfaced", err)
	}
}

func TestCreateTaskRejectsMissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret-key", HTTPClient: srv.Client()})
	if _, err := client.CreateTask(context.Background(), Task{Category: "upper_body"}); err == nil {
		t.Fatalf("expected error for response without job id")
	}
}

func TestCreateTaskRequiresAPIKey(t *testing.T) {
	client := NewClient(Options{BaseURL: "https://api.example.com"})
	if _, err := client.CreateTask(context.Background(), Task{Category: "upper_body"}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
