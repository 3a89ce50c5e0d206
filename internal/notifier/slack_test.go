package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid", "https://hooks.slack.com/services/T00/B00/xxx", false},
		{"empty", "", true},
		{"plain http", "http://hooks.slack.com/services/T00/B00/xxx", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SlackConfig{WebhookURL: tt.url}
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSlackChannel_SendPayload(t *testing.T) {
	var captured slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Bypass the HTTPS check to point at the local test server.
	channel := &SlackChannel{
		config:     SlackConfig{WebhookURL: server.URL},
		httpClient: server.Client(),
	}

	e := testEscalation()
	if err := channel.Send(context.Background(), e); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(captured.Blocks) == 0 {
		t.Fatal("payload has no blocks")
	}
	if captured.Blocks[0].Type != "header" {
		t.Errorf("first block type = %s, want header", captured.Blocks[0].Type)
	}
	if !strings.Contains(captured.Blocks[0].Text.Text, e.Title) {
		t.Errorf("header = %q, want title %q", captured.Blocks[0].Text.Text, e.Title)
	}

	var joined strings.Builder
	for _, b := range captured.Blocks {
		if b.Text != nil {
			joined.WriteString(b.Text.Text)
		}
		for _, f := range b.Fields {
			joined.WriteString(f.Text)
		}
		for _, el := range b.Elements {
			joined.WriteString(el.Text)
		}
	}
	body := joined.String()
	for _, want := range []string{"IMMEDIATE", "nurse", "patient-1", e.Reason, e.RecommendedAction, e.TriggerRule, e.ID} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSlackChannel_SendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	channel := &SlackChannel{
		config:     SlackConfig{WebhookURL: server.URL},
		httpClient: server.Client(),
	}

	err := channel.Send(context.Background(), testEscalation())
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "invalid_payload") {
		t.Errorf("error = %v, want response body included", err)
	}
}

func TestSlackChannel_SendContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	channel := &SlackChannel{
		config:     SlackConfig{WebhookURL: server.URL},
		httpClient: server.Client(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := channel.Send(ctx, testEscalation()); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
