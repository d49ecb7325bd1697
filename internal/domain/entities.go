package domain

import "time"

// SourceKind identifies how a source's text was obtained.
type SourceKind string

const (
	SourceText    SourceKind = "text"
	SourcePDF     SourceKind = "pdf"
	SourceYouTube SourceKind = "youtube"
)

// Source is one ingested document. Text is the normalized plain text handed
// to the chunker; it never changes after ingestion.
type Source struct {
	ID      string     `json:"id"`
	Kind    SourceKind `json:"kind"`
	Label   string     `json:"label"`
	Text    string     `json:"text"`
	AddedAt time.Time  `json:"added_at"`
}

// Chunk is a contiguous window of the corpus text.
type Chunk struct {
	Index int    `json:"index"` // position in the chunk sequence
	Start int    `json:"start"` // rune offset into the corpus
	Text  string `json:"text"`
}

// ScoredChunk pairs a chunk with its similarity score for one query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Index is the searchable state of the corpus: the chunk sequence and its
// order-aligned embedding matrix. Vectors[i] is the embedding of Chunks[i].
// An Index is immutable once built and always replaced as a whole.
type Index struct {
	Chunks     []Chunk
	Vectors    [][]float32
	Model      string // embedding model that produced Vectors
	Generation uint64
}

// Empty reports whether the index has nothing to search.
func (ix *Index) Empty() bool {
	return ix == nil || len(ix.Chunks) == 0
}

// Snapshot is the persisted form of a session: source list, chunk sequence,
// embedding matrix and the model that produced it, serialized as one
// versioned unit.
type Snapshot struct {
	Version    int         `json:"version"`
	Model      string      `json:"model"`
	Generation uint64      `json:"generation"`
	Sources    []Source    `json:"sources"`
	Chunks     []Chunk     `json:"chunks"`
	Vectors    [][]float32 `json:"vectors"`
}

// Message is one turn of the chat transcript.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Answer is the outcome of one query turn. When Degraded is set, generation
// failed and Text holds no model output; Context still carries the retrieved
// chunks so the turn stays useful without it.
type Answer struct {
	Text     string
	Degraded bool
	Context  []ScoredChunk
}

// Stats summarizes the current session state.
type Stats struct {
	Sources    int
	Chunks     int
	CorpusLen  int
	Generation uint64
}
