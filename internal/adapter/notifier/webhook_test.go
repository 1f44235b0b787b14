package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/halcyon-security/breachradar/internal/core/ports"
)

func TestNotifyBreach(t *testing.T) {
	var received webhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("payload is not valid JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	affected := int64(1023000)
	n := NewWebhookNotifier(srv.URL, "@security-team")

	err := n.NotifyBreach(ports.BreachNotification{
		Title:        "Acme Corp suffered a data breach",
		Link:         "https://example.com/acme",
		Source:       "test-feed",
		Organization: "Acme Corp",
		Confidence:   0.9,
		Affected:     &affected,
		DataTypes:    []string{"credentials", "ssn"},
	})
	if err != nil {
		t.Fatalf("NotifyBreach() error = %v", err)
	}

	if !strings.Contains(received.Text, "Acme Corp") {
		t.Errorf("summary text = %q, want the title in it", received.Text)
	}
	if len(received.Blocks) < 3 {
		t.Errorf("got %d blocks, want header, facts and detail", len(received.Blocks))
	}
}

func TestNotifyBreachServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "")
	if err := n.NotifyBreach(ports.BreachNotification{Title: "x", Link: "https://example.com"}); err == nil {
		t.Fatal("expected an error for a 500 webhook response")
	}
}
