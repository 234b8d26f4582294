package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// ErrUnknownEventType is returned for envelopes no handler accepts
var ErrUnknownEventType = errors.New("unknown event type")

// EventHandler reacts to document change events
type EventHandler interface {
	HandleSubmissionUpdated(ctx context.Context, evt domain.SubmissionUpdatedEvent) error
	HandleSubmissionDeleted(ctx context.Context, evt domain.SubmissionDeletedEvent) error
	HandleEntryCreated(ctx context.Context, evt domain.EntryCreatedEvent) error
	HandlePostCreated(ctx context.Context, evt domain.PostCreatedEvent) error
}

// Envelope is the message format of the change topic. Before carries the
// prior state of a deleted submission.
type Envelope struct {
	EventID      string             `json:"event_id"`
	Type         domain.EventType   `json:"type"`
	TournamentID string             `json:"tournament_id,omitempty"`
	SubmissionID string             `json:"submission_id,omitempty"`
	UserID       string             `json:"user_id,omitempty"`
	Before       *domain.Submission `json:"before,omitempty"`
	After        *domain.Submission `json:"after,omitempty"`
	PostID       string             `json:"post_id,omitempty"`
	Size         float64            `json:"size,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// Key returns the partition key. Events of one tournament share a partition.
func (e Envelope) Key() string {
	if e.TournamentID != "" {
		return e.TournamentID
	}
	return e.UserID
}

// DecodeEnvelope parses a message value
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decoding envelope: %w: missing type", ErrUnknownEventType)
	}
	return env, nil
}

// Dispatch routes an envelope to the matching handler method
func Dispatch(ctx context.Context, h EventHandler, env Envelope) error {
	switch env.Type {
	case domain.EventSubmissionUpdated:
		return h.HandleSubmissionUpdated(ctx, domain.SubmissionUpdatedEvent{
			TournamentID: env.TournamentID,
			SubmissionID: env.SubmissionID,
			Before:       env.Before,
			After:        env.After,
		})
	case domain.EventSubmissionDeleted:
		return h.HandleSubmissionDeleted(ctx, domain.SubmissionDeletedEvent{
			TournamentID: env.TournamentID,
			SubmissionID: env.SubmissionID,
			Prior:        env.Before,
		})
	case domain.EventEntryCreated:
		return h.HandleEntryCreated(ctx, domain.EntryCreatedEvent{
			TournamentID: env.TournamentID,
			UserID:       env.UserID,
		})
	case domain.EventPostCreated:
		return h.HandlePostCreated(ctx, domain.PostCreatedEvent{
			PostID: env.PostID,
			UserID: env.UserID,
			Size:   env.Size,
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

// retryable reports whether redelivering the event could succeed
func retryable(err error) bool {
	return !errors.Is(err, ErrUnknownEventType) &&
		!errors.Is(err, domain.ErrInvalidArgument) &&
		!errors.Is(err, domain.ErrInvalidRule) &&
		!errors.Is(err, context.Canceled)
}
