// internal/tournament/scheduler.go
package tournament

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/opopina/logiverse/internal/models"
)

// Weekend tournament presets.
const (
	saturdayName  = "Villa Verdad Championship"
	saturdayHour  = 15
	saturdayCap   = 16
	saturdayPrize = 1000

	sundayName  = "Loggie's Grand Prix"
	sundayHour  = 16
	sundayCap   = 32
	sundayPrize = 2000
)

// ScheduleWeekendTournaments creates the upcoming weekend's tournaments
// if they do not exist yet: Saturday 15:00 capped at 16 players and
// Sunday 16:00 capped at 32. Registration opens 48h before start and
// closes 1h before. Idempotent across restarts.
func (s *Service) ScheduleWeekendTournaments(ctx context.Context) error {
	now := time.Now()

	presets := []struct {
		name    string
		day     time.Weekday
		hour    int
		cap     int
		prize   int
		descFmt string
	}{
		{saturdayName, time.Saturday, saturdayHour, saturdayCap, saturdayPrize,
			"Saturday showdown in Villa Verdad. %d player single elimination."},
		{sundayName, time.Sunday, sundayHour, sundayCap, sundayPrize,
			"Sunday spectacular hosted by Loggie. %d player single elimination."},
	}

	for _, p := range presets {
		startsAt := nextWeekday(now, p.day, p.hour)
		exists, err := s.Store.TournamentExistsAt(ctx, p.name, startsAt)
		if err != nil {
			return fmt.Errorf("check existing %q: %w", p.name, err)
		}
		if exists {
			continue
		}
		_, err = s.CreateAutomaticTournament(ctx, CreateTournamentInput{
			Name:               p.name,
			Description:        fmt.Sprintf(p.descFmt, p.cap),
			MaxParticipants:    p.cap,
			PrizePool:          p.prize,
			StartsAt:           startsAt,
			RegistrationOpens:  startsAt.Add(-48 * time.Hour),
			RegistrationCloses: startsAt.Add(-time.Hour),
		})
		if err != nil {
			return fmt.Errorf("create %q: %w", p.name, err)
		}
		s.Log.Infof("scheduled weekend tournament %q for %s", p.name, startsAt.Format(time.RFC1123))
	}
	return nil
}

// startRegistrar is the slice of gocron.Scheduler the auto-start path
// needs; tests supply a recorder.
type startRegistrar interface {
	NewJob(gocron.JobDefinition, gocron.Task, ...gocron.JobOption) (gocron.Job, error)
}

// scheduleStarts registers a one-shot bracket start for every open
// tournament whose start time is still ahead. Re-runs skip tournaments
// that already have a pending start, so the weekly job stays idempotent.
func (s *Service) scheduleStarts(ctx context.Context, reg startRegistrar) error {
	open, err := s.Store.ListTournaments(ctx, []models.TournamentStatus{models.TournamentRegistrationOpen})
	if err != nil {
		return fmt.Errorf("list open tournaments: %w", err)
	}

	for _, t := range open {
		if !t.StartsAt.After(time.Now()) {
			continue
		}
		s.mu.Lock()
		pending := s.startJobs[t.ID]
		if !pending {
			s.startJobs[t.ID] = true
		}
		s.mu.Unlock()
		if pending {
			continue
		}

		id := t.ID
		name := t.Name
		_, err := reg.NewJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(t.StartsAt)),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := s.StartTournament(ctx, id); err != nil {
					s.Log.Warnf("auto-start of tournament %q failed: %v", name, err)
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("schedule start of %q: %w", name, err)
		}
		s.Log.Infof("tournament %q starts automatically at %s", name, t.StartsAt.Format(time.RFC1123))
	}
	return nil
}

// nextWeekday returns the next occurrence of the weekday at the given
// hour, local time. If that moment today has already passed, it rolls a
// full week forward.
func nextWeekday(now time.Time, day time.Weekday, hour int) time.Time {
	daysAhead := (int(day) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()).
		AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// StartWeekendScheduler runs ScheduleWeekendTournaments once immediately,
// then every Monday at midnight. The returned scheduler should be shut
// down on exit.
func (s *Service) StartWeekendScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.ScheduleWeekendTournaments(ctx); err != nil {
			s.Log.Warnf("weekend tournament scheduling failed: %v", err)
		}
		if err := s.scheduleStarts(ctx, sched); err != nil {
			s.Log.Warnf("tournament auto-start scheduling failed: %v", err)
		}
	}

	_, err = sched.NewJob(
		gocron.WeeklyJob(1,
			gocron.NewWeekdays(time.Monday),
			gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0)),
		),
		gocron.NewTask(run),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	run()
	return sched, nil
}
