// internal/tournament/errors.go
package tournament

import "errors"

var (
	// ErrTournamentNotFound indicates the tournament does not exist.
	ErrTournamentNotFound = errors.New("tournament not found")

	// ErrRegistrationClosed indicates registration is not open.
	ErrRegistrationClosed = errors.New("tournament registration is closed")

	// ErrTournamentFull indicates the participant cap is reached.
	ErrTournamentFull = errors.New("tournament is full")

	// ErrAlreadyRegistered indicates a duplicate registration.
	ErrAlreadyRegistered = errors.New("user is already registered")

	// ErrNotEnoughParticipants indicates a bracket needs at least two entrants.
	ErrNotEnoughParticipants = errors.New("need at least 2 participants to start")

	// ErrAlreadyStarted indicates the bracket has already been generated.
	ErrAlreadyStarted = errors.New("tournament already started")

	// ErrMatchNotFound indicates the match does not exist.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchAlreadyCompleted indicates a result was already recorded.
	ErrMatchAlreadyCompleted = errors.New("match already completed")

	// ErrInvalidWinner indicates the winner is not one of the match players.
	ErrInvalidWinner = errors.New("winner is not a player in this match")

	// ErrInvalidTournamentConfig indicates a bad name, cap, or schedule.
	ErrInvalidTournamentConfig = errors.New("invalid tournament configuration")
)
