// internal/tournament/bracket.go
package tournament

import (
	"time"

	"github.com/google/uuid"
	"github.com/opopina/logiverse/internal/models"
)

// roundDelay is the gap between one round finishing and the next round's
// matches being playable.
const roundDelay = 30 * time.Minute

// pairing is the outcome of pairing one round's entrant pool: the real
// matches plus an optional bye. The bye player gets no match row and is
// carried straight into the next round's pool.
type pairing struct {
	matches []models.TournamentMatch
	bye     *uuid.UUID
}

// pairRound pairs entrants in order: (1,2), (3,4), and so on. An odd
// leftover becomes the bye. Matches are created PENDING at the given
// scheduled time.
func pairRound(tournamentID uuid.UUID, entrants []uuid.UUID, round int, scheduledAt time.Time) pairing {
	var p pairing
	for i := 0; i+1 < len(entrants); i += 2 {
		p.matches = append(p.matches, models.TournamentMatch{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Round:        round,
			Position:     i/2 + 1,
			Player1ID:    entrants[i],
			Player2ID:    entrants[i+1],
			Status:       models.MatchPending,
			ScheduledAt:  scheduledAt,
		})
	}
	if len(entrants)%2 == 1 {
		bye := entrants[len(entrants)-1]
		p.bye = &bye
	}
	return p
}

// roundWinners collects the winners of a completed round in encounter
// order (by match position), with the carried bye appended last.
func roundWinners(matches []models.TournamentMatch, round int, bye *uuid.UUID) []uuid.UUID {
	var winners []uuid.UUID
	for _, m := range matches {
		if m.Round == round && m.WinnerID != nil {
			winners = append(winners, *m.WinnerID)
		}
	}
	if bye != nil {
		winners = append(winners, *bye)
	}
	return winners
}

// roundComplete reports whether every match of the round is COMPLETED.
func roundComplete(matches []models.TournamentMatch, round int) bool {
	found := false
	for _, m := range matches {
		if m.Round != round {
			continue
		}
		found = true
		if m.Status != models.MatchCompleted {
			return false
		}
	}
	return found
}
