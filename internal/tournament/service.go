// internal/tournament/service.go
package tournament

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opopina/logiverse/internal/models"
)

// Store is the durable persistence the engine writes through. The pgx
// repositories in internal/database implement it. Writes happen before
// the matching memory mutation.
type Store interface {
	InsertTournament(ctx context.Context, t *models.Tournament) error
	UpdateTournamentStatus(ctx context.Context, id uuid.UUID, status models.TournamentStatus) error
	SetTournamentWinner(ctx context.Context, id, winnerID uuid.UUID) error
	InsertTournamentParticipant(ctx context.Context, p *models.TournamentParticipant) error
	MarkParticipantEliminated(ctx context.Context, tournamentID, userID uuid.UUID) error
	InsertMatches(ctx context.Context, matches []models.TournamentMatch) error
	CompleteMatch(ctx context.Context, matchID, winnerID uuid.UUID, at time.Time) error
	ListTournaments(ctx context.Context, statuses []models.TournamentStatus) ([]models.Tournament, error)
	TournamentExistsAt(ctx context.Context, name string, startsAt time.Time) (bool, error)
}

// Publisher pushes tournament events to every connected client.
// Tournament lifecycle is global news, unlike room-scoped match play.
type Publisher interface {
	PublishGlobal(msg map[string]interface{})
}

// state is the live bracket of one tournament. All mutations run under mu.
type state struct {
	mu           sync.Mutex
	t            models.Tournament
	participants []models.TournamentParticipant
	matches      []models.TournamentMatch
	byes         map[int]*uuid.UUID // round -> carried bye, if any
	currentRound int
}

// Service owns live tournament state and drives registration, bracket
// generation, and round advancement.
type Service struct {
	Store Store
	Hub   Publisher
	Log   *logrus.Logger

	// Rand feeds the entrant shuffle. Tests inject a seeded source.
	Rand   *rand.Rand
	randMu sync.Mutex

	mu          sync.Mutex
	tournaments map[uuid.UUID]*state
	matchIndex  map[uuid.UUID]uuid.UUID // matchID -> tournamentID
	startJobs   map[uuid.UUID]bool      // tournaments with a pending auto-start
}

// NewService wires a tournament service with empty live state.
func NewService(store Store, hub Publisher, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		Store:       store,
		Hub:         hub,
		Log:         logger,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		tournaments: make(map[uuid.UUID]*state),
		matchIndex:  make(map[uuid.UUID]uuid.UUID),
		startJobs:   make(map[uuid.UUID]bool),
	}
}

func (s *Service) getState(id uuid.UUID) (*state, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tournaments[id]
	return st, ok
}

// CreateTournamentInput is the configuration for an automatic tournament.
type CreateTournamentInput struct {
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	MaxParticipants    int       `json:"maxParticipants"`
	PrizePool          int       `json:"prizePool"`
	StartsAt           time.Time `json:"startsAt"`
	RegistrationOpens  time.Time `json:"registrationOpens"`
	RegistrationCloses time.Time `json:"registrationCloses"`
}

// CreateAutomaticTournament persists and registers a new public
// tournament with open registration and an empty bracket.
func (s *Service) CreateAutomaticTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(input.Name) == "" || input.MaxParticipants < 2 {
		return nil, ErrInvalidTournamentConfig
	}

	t := models.Tournament{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(input.Name),
		Description:        input.Description,
		Format:             models.FormatSingleElimination,
		Status:             models.TournamentRegistrationOpen,
		MaxParticipants:    input.MaxParticipants,
		PrizePool:          input.PrizePool,
		StartsAt:           input.StartsAt,
		RegistrationOpens:  input.RegistrationOpens,
		RegistrationCloses: input.RegistrationCloses,
		CreatedAt:          time.Now(),
	}
	if err := s.Store.InsertTournament(ctx, &t); err != nil {
		return nil, fmt.Errorf("persist tournament: %w", err)
	}

	s.mu.Lock()
	s.tournaments[t.ID] = &state{t: t, byes: make(map[int]*uuid.UUID)}
	s.mu.Unlock()

	s.Hub.PublishGlobal(map[string]interface{}{
		"type":       "tournament-created",
		"tournament": t,
	})
	return &t, nil
}

// JoinTournament registers a user. Validation order: not found, closed,
// full, duplicate.
func (s *Service) JoinTournament(ctx context.Context, tournamentID, userID uuid.UUID, username string) error {
	st, ok := s.getState(tournamentID)
	if !ok {
		return ErrTournamentNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.t.Status != models.TournamentRegistrationOpen {
		return ErrRegistrationClosed
	}
	if len(st.participants) >= st.t.MaxParticipants {
		return ErrTournamentFull
	}
	for _, p := range st.participants {
		if p.UserID == userID {
			return ErrAlreadyRegistered
		}
	}

	p := models.TournamentParticipant{
		TournamentID: tournamentID,
		UserID:       userID,
		Username:     username,
		Seed:         len(st.participants) + 1,
		RegisteredAt: time.Now(),
	}
	if err := s.Store.InsertTournamentParticipant(ctx, &p); err != nil {
		return fmt.Errorf("persist registration: %w", err)
	}
	st.participants = append(st.participants, p)

	s.Hub.PublishGlobal(map[string]interface{}{
		"type":            "tournament-participant-joined",
		"tournamentId":    tournamentID.String(),
		"userId":          userID.String(),
		"username":        username,
		"participants":    len(st.participants),
		"maxParticipants": st.t.MaxParticipants,
	})
	return nil
}

// StartTournament shuffles the entrants and generates the first round.
// Pairs become PENDING matches playable immediately; an odd entrant gets
// a bye into round two with no match row.
func (s *Service) StartTournament(ctx context.Context, tournamentID uuid.UUID) error {
	st, ok := s.getState(tournamentID)
	if !ok {
		return ErrTournamentNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.t.Status == models.TournamentInProgress || st.t.Status == models.TournamentCompleted {
		return ErrAlreadyStarted
	}
	if len(st.participants) < 2 {
		return ErrNotEnoughParticipants
	}

	entrants := make([]uuid.UUID, len(st.participants))
	for i, p := range st.participants {
		entrants[i] = p.UserID
	}
	s.shuffle(entrants)

	now := time.Now()
	p := pairRound(tournamentID, entrants, 1, now)
	if err := s.Store.InsertMatches(ctx, p.matches); err != nil {
		return fmt.Errorf("persist bracket: %w", err)
	}
	if err := s.Store.UpdateTournamentStatus(ctx, tournamentID, models.TournamentInProgress); err != nil {
		return fmt.Errorf("persist status: %w", err)
	}

	st.t.Status = models.TournamentInProgress
	st.matches = p.matches
	st.currentRound = 1
	st.byes[1] = p.bye

	s.mu.Lock()
	for _, m := range p.matches {
		s.matchIndex[m.ID] = tournamentID
	}
	s.mu.Unlock()

	s.Hub.PublishGlobal(map[string]interface{}{
		"type":         "tournament-started",
		"tournamentId": tournamentID.String(),
		"round":        1,
		"matches":      p.matches,
	})
	return nil
}

// ReportMatchResult records a winner. Reporting a completed match is
// rejected without side effects. When the result completes the round the
// bracket advances: a single survivor finalizes the tournament, otherwise
// winners are paired in encounter order into the next round.
func (s *Service) ReportMatchResult(ctx context.Context, matchID, winnerID uuid.UUID) error {
	s.mu.Lock()
	tournamentID, ok := s.matchIndex[matchID]
	s.mu.Unlock()
	if !ok {
		return ErrMatchNotFound
	}
	st, ok := s.getState(tournamentID)
	if !ok {
		return ErrMatchNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var match *models.TournamentMatch
	for i := range st.matches {
		if st.matches[i].ID == matchID {
			match = &st.matches[i]
			break
		}
	}
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status == models.MatchCompleted {
		return ErrMatchAlreadyCompleted
	}
	if winnerID != match.Player1ID && winnerID != match.Player2ID {
		return ErrInvalidWinner
	}

	now := time.Now()
	if err := s.Store.CompleteMatch(ctx, matchID, winnerID, now); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	match.Status = models.MatchCompleted
	match.WinnerID = &winnerID
	match.CompletedAt = &now

	loser := match.Player1ID
	if loser == winnerID {
		loser = match.Player2ID
	}
	if err := s.Store.MarkParticipantEliminated(ctx, tournamentID, loser); err != nil {
		s.Log.Warnf("mark eliminated for %s failed: %v", loser, err)
	}
	for i := range st.participants {
		if st.participants[i].UserID == loser {
			st.participants[i].Eliminated = true
		}
	}

	s.Hub.PublishGlobal(map[string]interface{}{
		"type":         "match-completed",
		"tournamentId": tournamentID.String(),
		"matchId":      matchID.String(),
		"round":        match.Round,
		"winnerId":     winnerID.String(),
	})

	if roundComplete(st.matches, match.Round) {
		return s.advanceRound(ctx, st, match.Round)
	}
	return nil
}

// advanceRound moves the bracket forward once every match of a round is
// done. Caller must hold st.mu.
func (s *Service) advanceRound(ctx context.Context, st *state, round int) error {
	pool := roundWinners(st.matches, round, st.byes[round])

	if len(pool) == 1 {
		champion := pool[0]
		if err := s.Store.SetTournamentWinner(ctx, st.t.ID, champion); err != nil {
			return fmt.Errorf("persist winner: %w", err)
		}
		st.t.Status = models.TournamentCompleted
		st.t.WinnerID = &champion

		s.Hub.PublishGlobal(map[string]interface{}{
			"type":         "tournament-completed",
			"tournamentId": st.t.ID.String(),
			"winnerId":     champion.String(),
			"prizePool":    st.t.PrizePool,
		})
		return nil
	}

	next := round + 1
	p := pairRound(st.t.ID, pool, next, time.Now().Add(roundDelay))
	if err := s.Store.InsertMatches(ctx, p.matches); err != nil {
		return fmt.Errorf("persist next round: %w", err)
	}

	st.matches = append(st.matches, p.matches...)
	st.currentRound = next
	st.byes[next] = p.bye

	s.mu.Lock()
	for _, m := range p.matches {
		s.matchIndex[m.ID] = st.t.ID
	}
	s.mu.Unlock()

	s.Hub.PublishGlobal(map[string]interface{}{
		"type":         "tournament-round-advanced",
		"tournamentId": st.t.ID.String(),
		"round":        next,
		"matches":      p.matches,
	})
	return nil
}

// ActiveTournaments lists tournaments players can still interact with.
func (s *Service) ActiveTournaments(ctx context.Context) ([]models.Tournament, error) {
	return s.Store.ListTournaments(ctx, []models.TournamentStatus{
		models.TournamentRegistrationOpen,
		models.TournamentInProgress,
	})
}

// Bracket returns a copy of a tournament's matches for the HTTP surface.
func (s *Service) Bracket(tournamentID uuid.UUID) ([]models.TournamentMatch, error) {
	st, ok := s.getState(tournamentID)
	if !ok {
		return nil, ErrTournamentNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]models.TournamentMatch, len(st.matches))
	copy(out, st.matches)
	return out, nil
}

// shuffle is a Fisher-Yates pass over the entrant list.
func (s *Service) shuffle(entrants []uuid.UUID) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	for i := len(entrants) - 1; i > 0; i-- {
		j := s.Rand.Intn(i + 1)
		entrants[i], entrants[j] = entrants[j], entrants[i]
	}
}
