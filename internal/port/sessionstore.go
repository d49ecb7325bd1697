package port

import "lecturmate/internal/domain"

// SessionStore persists session state between runs: the index snapshot as
// one versioned unit, plus the chat transcript.
type SessionStore interface {
	// SaveSnapshot replaces the stored snapshot.
	SaveSnapshot(snap domain.Snapshot) error

	// LoadSnapshot returns the stored snapshot, if any. Loading a snapshot
	// built with a different embedding model than wantModel fails.
	LoadSnapshot(wantModel string) (domain.Snapshot, bool, error)

	AppendMessage(msg domain.Message) error

	Transcript() ([]domain.Message, error)

	// Reset drops the snapshot and transcript.
	Reset() error

	Close() error
}
