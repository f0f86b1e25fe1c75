// internal/persona/loggie_test.go
package persona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSendsAuthAndPayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Message{Text: "Sharp thinking!", Mood: "celebratory"})
	}))
	defer srv.Close()

	c := &Client{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Client:  &http.Client{Timeout: time.Second},
	}

	msg := c.Generate(context.Background(), "correct_answer", map[string]interface{}{"username": "ada"}, "")
	assert.Equal(t, "Sharp thinking!", msg.Text)
	assert.Equal(t, "celebratory", msg.Mood)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "correct_answer", gotBody["event"])
}

func TestGenerateFallsBackWhenUnconfigured(t *testing.T) {
	c := &Client{Client: &http.Client{Timeout: time.Second}}

	msg := c.Generate(context.Background(), "game_started", nil, "")
	assert.NotEmpty(t, msg.Text)
	assert.NotEmpty(t, msg.Mood)
}

func TestGenerateFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Client: &http.Client{Timeout: time.Second}}

	msg := c.Generate(context.Background(), "wrong_answer", nil, "")
	assert.NotEmpty(t, msg.Text, "canned line expected on upstream failure")
}
