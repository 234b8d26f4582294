package firestore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

func (s *Store) submissions(tournamentID string) *firestore.CollectionRef {
	return s.tournament(tournamentID).Collection(colSubmissions)
}

// GetSubmission retrieves one submission
func (s *Store) GetSubmission(ctx context.Context, tournamentID, submissionID string) (*domain.Submission, error) {
	snap, err := s.submissions(tournamentID).Doc(submissionID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("submission %s: %w", submissionID, domain.ErrSubmissionNotFound)
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}

	var doc submissionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding submission: %w", err)
	}
	sub := doc.toDomain(tournamentID, submissionID)
	return &sub, nil
}

// ListSubmissions returns a tournament's submissions passing filter, ordered by ID
func (s *Store) ListSubmissions(ctx context.Context, tournamentID string, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	q := s.submissions(tournamentID).Query
	if filter.UserID != "" {
		q = q.Where("userId", "==", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	out := make([]domain.Submission, 0, len(snaps))
	for _, snap := range snaps {
		var doc submissionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding submission %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(tournamentID, snap.Ref.ID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetSubmissionStatus sets the status of several submissions in one
// transaction. Nothing is written unless every submission exists.
func (s *Store) SetSubmissionStatus(ctx context.Context, tournamentID string, ids []string, status domain.SubmissionStatus) error {
	if len(ids) == 0 {
		return nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = s.submissions(tournamentID).Doc(id)
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			if !snap.Exists() {
				return fmt.Errorf("submission %s: %w", ids[i], domain.ErrSubmissionNotFound)
			}
		}

		now := s.now()
		for _, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "status", Value: string(status)},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating submission status: %w", err)
	}
	return nil
}
