// internal/models/challenge.go
package models

import (
	"encoding/json"
	"strings"
)

// Challenge is one logic puzzle from the content catalog. Content is the
// public payload sent to players; Solution stays server-side and is kept
// opaque at this layer, answer checking normalizes it in the coordinator.
type Challenge struct {
	ID          string          `json:"id"`
	WorldID     string          `json:"worldId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Difficulty  int             `json:"difficulty"`
	IsActive    bool            `json:"isActive"`
	Content     json.RawMessage `json:"content"`
	Solution    json.RawMessage `json:"-"`
}

// CorrectAnswer extracts the expected answer from the stored solution
// payload. Solutions are stored either as a bare JSON scalar or as an
// object with a "correctAnswer" field; non-string scalars (numbers,
// booleans) compare by their token form.
func (c *Challenge) CorrectAnswer() (string, bool) {
	if len(c.Solution) == 0 {
		return "", false
	}
	var obj struct {
		CorrectAnswer json.RawMessage `json:"correctAnswer"`
	}
	if err := json.Unmarshal(c.Solution, &obj); err == nil && len(obj.CorrectAnswer) > 0 {
		return scalarToken(obj.CorrectAnswer)
	}
	return scalarToken(c.Solution)
}

// scalarToken renders a JSON scalar as its comparison string. Objects,
// arrays, and null have no answer form.
func scalarToken(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" || tok == "null" || tok[0] == '{' || tok[0] == '[' {
		return "", false
	}
	return tok, true
}

// Public returns the fields of the challenge that are safe to broadcast.
func (c *Challenge) Public() map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"worldId":     c.WorldID,
		"title":       c.Title,
		"description": c.Description,
		"difficulty":  c.Difficulty,
		"content":     c.Content,
	}
}
