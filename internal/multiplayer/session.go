// internal/multiplayer/session.go
package multiplayer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opopina/logiverse/internal/models"
)

// Score computes a player's session score at the moment they answer
// correctly. Faster solves, fewer hints, and fewer attempts score higher;
// the floor is zero.
//
//	base 100
//	+ time bonus  max(0, 100 - timeSpentSeconds)
//	- 10 per hint used
//	- 5 per attempt beyond the first
func Score(timeSpent, hintsUsed, attempts int) int {
	bonus := 100 - timeSpent
	if bonus < 0 {
		bonus = 0
	}
	score := 100 + bonus - hintsUsed*10 - (attempts-1)*5
	if score < 0 {
		score = 0
	}
	return score
}

// SubmitAnswer records one answer attempt. Unknown sessions and
// non-participants are silent no-ops. The raw answer is never broadcast;
// the room only hears whether it was correct and the player's new score.
func (c *Coordinator) SubmitAnswer(ctx context.Context, userID, sessionID uuid.UUID, answer string, timeSpent int) error {
	room, ok := c.Rooms.RoomOfSession(sessionID)
	if !ok {
		return nil
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Session == nil || room.Session.State.ID != sessionID {
		return nil
	}
	p := room.sessionParticipant(userID)
	if p == nil {
		return nil
	}
	if p.Correct() {
		// Already solved; ignore repeat submissions.
		return nil
	}

	updated := *p
	updated.Attempts++
	updated.LastAnswer = answer
	updated.TimeSpent = timeSpent

	correct := answersMatch(answer, room.Session.Challenge)
	updated.IsCorrect = &correct
	if correct {
		now := time.Now()
		updated.Score = Score(updated.TimeSpent, updated.HintsUsed, updated.Attempts)
		updated.EndTime = &now
	}

	if err := c.Store.UpdateSessionParticipant(ctx, sessionID, updated); err != nil {
		return fmt.Errorf("persist answer: %w", err)
	}
	*p = updated

	c.Hub.PublishToRoom(room.State.ID, map[string]interface{}{
		"type":      "player_answered",
		"roomId":    room.State.ID.String(),
		"sessionId": sessionID.String(),
		"userId":    userID.String(),
		"username":  p.Username,
		"isCorrect": correct,
		"score":     p.Score,
		"attempts":  p.Attempts,
	})
	c.journal(ctx, room.State.ID, userID, "player_answered", map[string]interface{}{
		"isCorrect": correct,
		"attempts":  p.Attempts,
	})

	if room.State.Settings.EnableAIModerator {
		event := "wrong_answer"
		if correct {
			event = "correct_answer"
		}
		go c.personaComment(room.State.ID, event, map[string]interface{}{
			"username": p.Username,
			"attempts": p.Attempts,
		}, "")
	}

	if sessionComplete(room.Session.State.Participants) {
		c.completeSession(ctx, room)
	}
	return nil
}

// answersMatch compares case-insensitively after trimming whitespace.
func answersMatch(answer string, ch *models.Challenge) bool {
	expected, ok := ch.CorrectAnswer()
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(expected))
}

func sessionComplete(participants []models.SessionParticipant) bool {
	for i := range participants {
		if !participants[i].Correct() {
			return false
		}
	}
	return len(participants) > 0
}

// Rank orders session participants: correct answers first; among correct
// players ascending timeSpent + attempts*10; everyone else by descending
// score. The comparator is total, so rankings stay stable if a session is
// ever force-ended with unanswered players.
func Rank(participants []models.SessionParticipant) []models.SessionResult {
	sorted := make([]models.SessionParticipant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Correct() != b.Correct() {
			return a.Correct()
		}
		if a.Correct() && b.Correct() {
			return a.TimeSpent+a.Attempts*10 < b.TimeSpent+b.Attempts*10
		}
		return a.Score > b.Score
	})

	results := make([]models.SessionResult, len(sorted))
	for i, p := range sorted {
		results[i] = models.SessionResult{
			Rank:      i + 1,
			UserID:    p.UserID,
			Username:  p.Username,
			Score:     p.Score,
			TimeSpent: p.TimeSpent,
			Attempts:  p.Attempts,
			IsCorrect: p.Correct(),
		}
	}
	return results
}

// completeSession finalizes a session once every participant has solved
// the challenge. Caller must hold room.Mu.
func (c *Coordinator) completeSession(ctx context.Context, room *Room) {
	sess := room.Session
	now := time.Now()
	results := Rank(sess.State.Participants)

	for _, res := range results {
		p := room.sessionParticipant(res.UserID)
		if p == nil {
			continue
		}
		p.Ranking = res.Rank
		if err := c.Store.UpdateSessionParticipant(ctx, sess.State.ID, *p); err != nil {
			c.Log.Warnf("persist ranking for %s failed: %v", res.UserID, err)
		}
		if err := c.updateStats(ctx, res, now); err != nil {
			c.Log.Warnf("stats update for %s failed: %v", res.UserID, err)
		}
	}

	if err := c.Store.FinishSession(ctx, sess.State.ID, models.SessionCompleted, now); err != nil {
		c.Log.Warnf("persist session completion failed: %v", err)
	}
	sess.State.Status = models.SessionCompleted
	sess.State.EndedAt = &now

	if err := c.Store.UpdateRoomStatus(ctx, room.State.ID, models.RoomStatusWaiting); err != nil {
		c.Log.Warnf("persist WAITING status after game failed: %v", err)
	}
	room.State.Status = models.RoomStatusWaiting

	c.Rooms.ClearSession(sess.State.ID)
	room.Session = nil

	c.Hub.PublishToRoom(room.State.ID, map[string]interface{}{
		"type":      "game_ended",
		"roomId":    room.State.ID.String(),
		"sessionId": sess.State.ID.String(),
		"results":   results,
	})
	c.journal(ctx, room.State.ID, room.State.CreatedBy, "game_ended", map[string]interface{}{
		"sessionId": sess.State.ID.String(),
	})

	if room.State.Settings.EnableAIModerator {
		go c.personaComment(room.State.ID, "game_completed", map[string]interface{}{
			"winner": results[0].Username,
		}, "")
	}
}

// updateStats folds one session result into the player's lifetime
// aggregate. A win extends the streak; anything else resets it to zero.
func (c *Coordinator) updateStats(ctx context.Context, res models.SessionResult, now time.Time) error {
	stats, err := c.Store.GetPlayerStats(ctx, res.UserID)
	if err != nil {
		return err
	}

	stats.GamesPlayed++
	stats.TotalScore += res.Score
	if res.Score > stats.BestScore {
		stats.BestScore = res.Score
	}
	if res.Rank == 1 {
		stats.GamesWon++
		stats.WinStreak++
		if stats.WinStreak > stats.MaxWinStreak {
			stats.MaxWinStreak = stats.WinStreak
		}
	} else {
		stats.WinStreak = 0
	}
	stats.LastActiveAt = now

	return c.Store.SavePlayerStats(ctx, stats)
}

// RequestHint spends one of the player's hints. Unknown sessions and
// non-participants are no-ops; a room hint cap of zero means unlimited.
// The hint text itself comes from Loggie and goes only to the requester.
func (c *Coordinator) RequestHint(ctx context.Context, userID, sessionID uuid.UUID) error {
	room, ok := c.Rooms.RoomOfSession(sessionID)
	if !ok {
		return nil
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Session == nil || room.Session.State.ID != sessionID {
		return nil
	}
	p := room.sessionParticipant(userID)
	if p == nil {
		return nil
	}
	maxHints := room.State.Settings.MaxHints
	if maxHints > 0 && p.HintsUsed >= maxHints {
		return ErrNoHintsLeft
	}

	updated := *p
	updated.HintsUsed++
	if err := c.Store.UpdateSessionParticipant(ctx, sessionID, updated); err != nil {
		return fmt.Errorf("persist hint: %w", err)
	}
	*p = updated

	c.Hub.PublishToRoom(room.State.ID, map[string]interface{}{
		"type":      "player_hint",
		"roomId":    room.State.ID.String(),
		"userId":    userID.String(),
		"hintsUsed": p.HintsUsed,
	})

	challengeTitle := room.Session.Challenge.Title
	go func() {
		if c.Persona == nil {
			return
		}
		hctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		msg := c.Persona.Generate(hctx, "hint_requested", map[string]interface{}{
			"challengeTitle": challengeTitle,
		}, "")
		c.Hub.PublishToUser(userID, map[string]interface{}{
			"type": "hint",
			"text": msg.Text,
			"mood": msg.Mood,
		})
	}()
	return nil
}

// SendRoomMessage persists and broadcasts one chat line from a member.
func (c *Coordinator) SendRoomMessage(ctx context.Context, userID uuid.UUID, username string, roomID uuid.UUID, text string) error {
	room, ok := c.Rooms.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.participant(userID) == nil {
		return ErrNotInRoom
	}

	m := models.RoomMessage{
		ID:       uuid.New(),
		RoomID:   roomID,
		UserID:   &userID,
		Username: username,
		Text:     text,
		SentAt:   time.Now(),
	}
	if err := c.Store.InsertRoomMessage(ctx, &m); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	c.Hub.PublishToRoom(roomID, map[string]interface{}{
		"type":    "room_message",
		"roomId":  roomID.String(),
		"message": m,
	})
	return nil
}

// HandleDisconnect marks the user's participant row DISCONNECTED and
// releases their user -> room mapping. Membership is kept so the room
// does not shrink under an active game; a later explicit leave or room
// deletion cleans it up.
func (c *Coordinator) HandleDisconnect(ctx context.Context, userID uuid.UUID) {
	roomID, ok := c.Rooms.RoomOfUser(userID)
	if !ok {
		return
	}
	room, ok := c.Rooms.GetRoom(roomID)
	if !ok {
		c.Rooms.ClearRoomOfUser(userID, roomID)
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	p := room.participant(userID)
	if p == nil {
		c.Rooms.ClearRoomOfUser(userID, roomID)
		return
	}

	if err := c.Store.UpdateParticipantStatus(ctx, roomID, userID, models.ParticipantDisconnected); err != nil {
		c.Log.Warnf("persist disconnect for %s failed: %v", userID, err)
	}
	p.Status = models.ParticipantDisconnected
	c.Rooms.ClearRoomOfUser(userID, roomID)
	c.Hub.Unsubscribe(roomID, userID)

	c.Hub.PublishToRoom(roomID, map[string]interface{}{
		"type":   "player_disconnected",
		"roomId": roomID.String(),
		"userId": userID.String(),
	})
	c.journal(ctx, roomID, userID, "player_disconnected", nil)
}
