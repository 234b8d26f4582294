// Package lifecycle advances tournaments through their status phases on a schedule.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/metrics"
)

// Store is the tournament access the controller needs
type Store interface {
	ListTournaments(ctx context.Context, filter domain.TournamentFilter) ([]domain.Tournament, error)
	// UpdateTournamentStatus writes to only when the stored status is still
	// from, and reports whether it wrote.
	UpdateTournamentStatus(ctx context.Context, id string, from, to domain.TournamentStatus) (bool, error)
}

// Result lists the tournaments moved by one scan
type Result struct {
	Started []string
	Judging []string
}

// Controller runs the scheduled status scan.
// Judging -> finished is left to the prize award.
type Controller struct {
	store    Store
	location *time.Location
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewController creates a new lifecycle controller. Day boundaries are
// computed in loc.
func NewController(store Store, loc *time.Location, m *metrics.Metrics, logger *slog.Logger) *Controller {
	if loc == nil {
		loc = time.UTC
	}
	return &Controller{
		store:    store,
		location: loc,
		metrics:  m,
		logger:   logger,
	}
}

// Scan moves pending tournaments whose start day has come to ongoing and
// ongoing tournaments whose end has passed to judging. Both candidate lists
// are read before any write, so a tournament advances at most one step per scan.
func (c *Controller) Scan(ctx context.Context, now time.Time) (Result, error) {
	pending, err := c.store.ListTournaments(ctx, domain.TournamentFilter{Statuses: []domain.TournamentStatus{domain.StatusPending}})
	if err != nil {
		return Result{}, fmt.Errorf("listing pending tournaments: %w", err)
	}
	ongoing, err := c.store.ListTournaments(ctx, domain.TournamentFilter{Statuses: []domain.TournamentStatus{domain.StatusOngoing}})
	if err != nil {
		return Result{}, fmt.Errorf("listing ongoing tournaments: %w", err)
	}

	var (
		res  Result
		errs []error
	)

	dayEnd := endOfDay(now, c.location)
	for _, t := range pending {
		if t.StartDate.IsZero() || !t.StartDate.Before(dayEnd) {
			continue
		}
		moved, err := c.advance(ctx, t, domain.StatusOngoing)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if moved {
			res.Started = append(res.Started, t.ID)
		}
	}

	for _, t := range ongoing {
		if t.EndDate.IsZero() || !t.EndDate.Before(now) {
			continue
		}
		moved, err := c.advance(ctx, t, domain.StatusJudging)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if moved {
			res.Judging = append(res.Judging, t.ID)
		}
	}

	c.logger.Info("lifecycle scan completed",
		"started", len(res.Started),
		"judging", len(res.Judging),
		"errors", len(errs),
	)
	return res, errors.Join(errs...)
}

func (c *Controller) advance(ctx context.Context, t domain.Tournament, to domain.TournamentStatus) (bool, error) {
	if !t.Status.CanTransitionTo(to) {
		return false, fmt.Errorf("tournament %s %s -> %s: %w", t.ID, t.Status, to, domain.ErrInvalidStatusTransition)
	}

	moved, err := c.store.UpdateTournamentStatus(ctx, t.ID, t.Status, to)
	if err != nil {
		c.logger.Error("failed to advance tournament",
			"tournament_id", t.ID,
			"from", t.Status,
			"to", to,
			"error", err,
		)
		return false, fmt.Errorf("advancing tournament %s: %w", t.ID, err)
	}
	if moved {
		c.metrics.Transitioned(string(t.Status), string(to))
		c.logger.Info("tournament advanced",
			"tournament_id", t.ID,
			"from", t.Status,
			"to", to,
		)
	}
	return moved, nil
}

// endOfDay returns the first instant of the day after now in loc
func endOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
