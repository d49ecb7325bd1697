package port

import "lecturmate/internal/domain"

// Ingestor turns a source descriptor (file path, URL) into plain text.
// A failed ingestion reports an error and leaves the session untouched.
type Ingestor interface {
	Kind() domain.SourceKind

	Ingest(descriptor string) (string, error)
}
