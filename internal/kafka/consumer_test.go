package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// FakeHandler records calls and returns the configured errors in order
type FakeHandler struct {
	updated []domain.SubmissionUpdatedEvent
	deleted []domain.SubmissionDeletedEvent
	entries []domain.EntryCreatedEvent
	posts   []domain.PostCreatedEvent
	errs    []error
	calls   int
}

func (f *FakeHandler) next() error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *FakeHandler) HandleSubmissionUpdated(ctx context.Context, evt domain.SubmissionUpdatedEvent) error {
	f.updated = append(f.updated, evt)
	return f.next()
}

func (f *FakeHandler) HandleSubmissionDeleted(ctx context.Context, evt domain.SubmissionDeletedEvent) error {
	f.deleted = append(f.deleted, evt)
	return f.next()
}

func (f *FakeHandler) HandleEntryCreated(ctx context.Context, evt domain.EntryCreatedEvent) error {
	f.entries = append(f.entries, evt)
	return f.next()
}

func (f *FakeHandler) HandlePostCreated(ctx context.Context, evt domain.PostCreatedEvent) error {
	f.posts = append(f.posts, evt)
	return f.next()
}

func encode(t *testing.T, env Envelope) []byte {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	h := &FakeHandler{}

	before := &domain.Submission{ID: "s1", UserID: "u1", Status: domain.SubmissionPending}
	after := &domain.Submission{ID: "s1", UserID: "u1", Status: domain.SubmissionApproved, JudgedSize: 22}

	require.NoError(t, Dispatch(ctx, h, Envelope{Type: domain.EventSubmissionUpdated, TournamentID: "t1", SubmissionID: "s1", Before: before, After: after}))
	require.NoError(t, Dispatch(ctx, h, Envelope{Type: domain.EventSubmissionDeleted, TournamentID: "t1", SubmissionID: "s1", Before: after}))
	require.NoError(t, Dispatch(ctx, h, Envelope{Type: domain.EventEntryCreated, TournamentID: "t1", UserID: "u1"}))
	require.NoError(t, Dispatch(ctx, h, Envelope{Type: domain.EventPostCreated, PostID: "p1", UserID: "u1", Size: 18.5}))

	require.Len(t, h.updated, 1)
	assert.Equal(t, float64(22), h.updated[0].After.JudgedSize)
	require.Len(t, h.deleted, 1)
	assert.Equal(t, "u1", h.deleted[0].Prior.UserID)
	require.Len(t, h.entries, 1)
	assert.Equal(t, "t1", h.entries[0].TournamentID)
	require.Len(t, h.posts, 1)
	assert.Equal(t, 18.5, h.posts[0].Size)

	err := Dispatch(ctx, h, Envelope{Type: "tournament.deleted"})
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event_id":"e1","type":"entry.created","tournament_id":"t1","user_id":"u1","occurred_at":"2026-06-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventEntryCreated, env.Type)
	assert.Equal(t, "t1", env.Key())

	_, err = DecodeEnvelope([]byte(`{"tournament_id":"t1"}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	assert.Equal(t, "u9", Envelope{UserID: "u9"}.Key())
}

func TestProcess(t *testing.T) {
	entry := Envelope{EventID: "e1", Type: domain.EventEntryCreated, TournamentID: "t1", UserID: "u1", OccurredAt: time.Now()}

	tests := []struct {
		name      string
		value     []byte
		errs      []error
		wantOK    bool
		wantCalls int
	}{
		{name: "success", value: encode(t, entry), wantOK: true, wantCalls: 1},
		{name: "transient then success", value: encode(t, entry), errs: []error{errors.New("unavailable")}, wantOK: true, wantCalls: 2},
		{
			name:      "gives up after the configured attempts",
			value:     encode(t, entry),
			errs:      []error{errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")},
			wantOK:    false,
			wantCalls: 3,
		},
		{
			name:      "invalid argument is not retried",
			value:     encode(t, entry),
			errs:      []error{domain.ErrInvalidArgument},
			wantOK:    false,
			wantCalls: 1,
		},
		{name: "unknown type is not dispatched", value: encode(t, Envelope{Type: "nope"}), wantOK: false, wantCalls: 0},
		{name: "garbage is dropped", value: []byte("{"), wantOK: false, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &FakeHandler{errs: tt.errs}
			c := &Consumer{
				config:  &config.KafkaConfig{RetryAttempts: 3, RetryDelay: time.Millisecond, HandlerTimeout: time.Second},
				handler: h,
				logger:  testLogger,
			}

			ok := c.process(context.Background(), tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, h.calls)
		})
	}
}

func TestProcess_StopsOnCancel(t *testing.T) {
	h := &FakeHandler{errs: []error{errors.New("a"), errors.New("b")}}
	c := &Consumer{
		config:  &config.KafkaConfig{RetryAttempts: 5, RetryDelay: time.Hour},
		handler: h,
		logger:  testLogger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := c.process(ctx, encode(t, Envelope{Type: domain.EventEntryCreated, TournamentID: "t1", UserID: "u1"}))
	assert.False(t, ok)
	assert.Equal(t, 1, h.calls)
}
