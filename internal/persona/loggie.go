// internal/persona/loggie.go
package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one line of Loggie commentary.
type Message struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

// Client talks to the Loggie commentary service. Every call is best-effort:
// on any failure it falls back to a canned line so gameplay never waits on
// or fails because of the persona.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewClient reads LOGGIE_API_URL and LOGGIE_API_KEY from the environment.
// An empty URL leaves the client in canned-only mode, which is fine for
// local development.
func NewClient() *Client {
	return &Client{
		BaseURL: os.Getenv("LOGGIE_API_URL"),
		APIKey:  os.Getenv("LOGGIE_API_KEY"),
		Client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Generate asks the persona service for a line about the given event.
// roomContext describes what just happened; customPrompt overrides the
// default prompt for the event when non-empty.
func (c *Client) Generate(ctx context.Context, event string, roomContext map[string]interface{}, customPrompt string) Message {
	if c.BaseURL == "" {
		return c.canned(event)
	}

	reqBody := map[string]interface{}{
		"event":   event,
		"context": roomContext,
	}
	if customPrompt != "" {
		reqBody["prompt"] = customPrompt
	}
	jsonData, _ := json.Marshal(reqBody)

	url := fmt.Sprintf("%s/generate", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return c.canned(event)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		logrus.Warnf("loggie generate failed for event %q: %v", event, err)
		return c.canned(event)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		logrus.Warnf("loggie returned %d for event %q: %s", resp.StatusCode, event, string(body))
		return c.canned(event)
	}

	var out Message
	if err := json.Unmarshal(body, &out); err != nil || out.Text == "" {
		return c.canned(event)
	}
	return out
}

var cannedLines = map[string][]Message{
	"game_started": {
		{Text: "Alright logicians, puzzle time! Show me what you've got!", Mood: "excited"},
		{Text: "A fresh challenge awaits. May the sharpest mind win!", Mood: "excited"},
	},
	"correct_answer": {
		{Text: "Brilliant deduction! That's exactly right!", Mood: "celebratory"},
		{Text: "Nailed it! Your logic circuits are firing today.", Mood: "celebratory"},
	},
	"wrong_answer": {
		{Text: "Not quite, but you're circling the answer. Try again!", Mood: "encouraging"},
		{Text: "Close! Re-read the clues, the answer is hiding in there.", Mood: "encouraging"},
	},
	"hint_requested": {
		{Text: "A little nudge coming up. Look at what the premises rule out.", Mood: "helpful"},
	},
	"game_completed": {
		{Text: "What a match! Every one of you cracked it. Rankings incoming!", Mood: "celebratory"},
	},
	"player_joined": {
		{Text: "A challenger appears! Welcome to the room.", Mood: "welcoming"},
	},
	"tournament_started": {
		{Text: "The bracket is set! Sixteen minds enter, one champion leaves.", Mood: "dramatic"},
	},
}

func (c *Client) canned(event string) Message {
	lines, ok := cannedLines[event]
	if !ok || len(lines) == 0 {
		return Message{Text: "Keep those brains whirring!", Mood: "cheerful"}
	}
	return lines[rand.Intn(len(lines))]
}
