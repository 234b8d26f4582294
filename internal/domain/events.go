package domain

// EventType names a change notification delivered to the handlers
type EventType string

const (
	EventSubmissionUpdated EventType = "submission.updated"
	EventSubmissionDeleted EventType = "submission.deleted"
	EventEntryCreated      EventType = "entry.created"
	EventPostCreated       EventType = "post.created"
)

// SubmissionUpdatedEvent is delivered when a submission document changes
type SubmissionUpdatedEvent struct {
	TournamentID string
	SubmissionID string
	Before       *Submission
	After        *Submission
}

// SubmissionDeletedEvent is delivered when a submission document is removed
type SubmissionDeletedEvent struct {
	TournamentID string
	SubmissionID string
	Prior        *Submission
}

// EntryCreatedEvent is delivered when a user joins a tournament
type EntryCreatedEvent struct {
	TournamentID string
	UserID       string
}

// PostCreatedEvent is delivered when a user logs a catch on the map
type PostCreatedEvent struct {
	PostID string
	UserID string
	Size   float64
}
