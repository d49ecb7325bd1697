package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lecturmate/config"
	"lecturmate/internal/adapter/chunker"
	"lecturmate/internal/domain"
	"lecturmate/internal/port"
)

// sourceSeparator joins source texts into the corpus. The blank line keeps
// windows from bleeding across source boundaries.
const sourceSeparator = "\n\n"

// contextSeparator joins retrieved chunks into the generation context.
const contextSeparator = "\n\n"

// Session is the pipeline orchestrator. It owns the source list and the
// current Index (chunks + embedding matrix) as one unit: every source change
// rebuilds both off to the side and publishes them atomically, so a reader
// always sees a fully formed snapshot.
type Session struct {
	cfg       *config.Config
	embedder  port.Embedder
	retriever port.Retriever
	generator port.Generator
	store     port.SessionStore // nil disables persistence
	logger    *zap.Logger

	onProgress func(done, total int)

	mu      sync.RWMutex
	sources []domain.Source
	index   *domain.Index
	lastGen uint64 // monotonic, never reused even when the index empties
}

// NewSession wires the pipeline. The embedder is acquired once by the caller
// and shared by reference; the session never re-instantiates it.
func NewSession(
	cfg *config.Config,
	embedder port.Embedder,
	retriever port.Retriever,
	generator port.Generator,
	store port.SessionStore,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:       cfg,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// SetProgress installs a callback invoked during corpus embedding with
// (chunks embedded so far, total chunks).
func (s *Session) SetProgress(fn func(done, total int)) {
	s.onProgress = fn
}

// Restore loads the persisted snapshot, if any. A snapshot from a different
// embedding model fails loudly rather than serving incomparable vectors.
func (s *Session) Restore() error {
	if s.store == nil {
		return nil
	}

	snap, ok, err := s.store.LoadSnapshot(s.embedder.ModelName())
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if !ok {
		return nil
	}

	var idx *domain.Index
	if len(snap.Chunks) > 0 {
		idx = &domain.Index{
			Chunks:     snap.Chunks,
			Vectors:    snap.Vectors,
			Model:      snap.Model,
			Generation: snap.Generation,
		}
	}

	s.mu.Lock()
	s.sources = snap.Sources
	s.index = idx
	s.lastGen = snap.Generation
	s.mu.Unlock()

	s.logger.Debug("session restored",
		zap.Int("sources", len(snap.Sources)),
		zap.Int("chunks", len(snap.Chunks)),
		zap.Uint64("generation", snap.Generation))
	return nil
}

// AddSource ingests a descriptor through the given ingestor and rebuilds the
// index. A failed ingestion returns before any state is touched. Re-adding
// the same descriptor replaces the previous text.
func (s *Session) AddSource(ing port.Ingestor, descriptor, label string) (domain.Source, error) {
	text, err := ing.Ingest(descriptor)
	if err != nil {
		return domain.Source{}, fmt.Errorf("ingestion failed for %s: %w", descriptor, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.Source{}, fmt.Errorf("ingestion produced no text for %s", descriptor)
	}
	if label == "" {
		label = descriptor
	}

	src := domain.Source{
		ID:      sourceID(ing.Kind(), descriptor),
		Kind:    ing.Kind(),
		Label:   label,
		Text:    text,
		AddedAt: time.Now(),
	}
	return src, s.applySources(upsertSource(s.snapshotSources(), src))
}

// AddText adds raw text directly, bypassing ingestion.
func (s *Session) AddText(label, text string) (domain.Source, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Source{}, fmt.Errorf("source %q has no text", label)
	}
	src := domain.Source{
		ID:      sourceID(domain.SourceText, label),
		Kind:    domain.SourceText,
		Label:   label,
		Text:    text,
		AddedAt: time.Now(),
	}
	return src, s.applySources(upsertSource(s.snapshotSources(), src))
}

// RemoveSource drops a source by ID and rebuilds the index from what is
// left. Removing the last source returns the session to the empty state.
func (s *Session) RemoveSource(id string) error {
	current := s.snapshotSources()

	kept := make([]domain.Source, 0, len(current))
	found := false
	for _, src := range current {
		if src.ID == id {
			found = true
			continue
		}
		kept = append(kept, src)
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return s.applySources(kept)
}

// Sources lists the current sources in addition order.
func (s *Session) Sources() []domain.Source {
	return s.snapshotSources()
}

// Stats reports the current index shape.
func (s *Session) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := domain.Stats{Sources: len(s.sources)}
	if s.index != nil {
		st.Chunks = len(s.index.Chunks)
		st.Generation = s.index.Generation
	}
	for _, src := range s.sources {
		st.CorpusLen += len(src.Text)
	}
	return st
}

// Ask answers one question: retrieve the top-K chunks for the query, then
// ground the generation call in them. When generation fails, the retrieved
// context is still returned as a degraded answer; retrieval succeeded and
// the turn should not collapse into a bare error.
func (s *Session) Ask(query string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, fmt.Errorf("empty query")
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	if idx.Empty() {
		return domain.Answer{}, domain.ErrNoSources
	}

	results, err := s.retriever.Search(query, idx, s.cfg.Retrieve.TopK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}
	if s.cfg.Retrieve.MinScore > 0 {
		results = filterByScore(results, s.cfg.Retrieve.MinScore)
	}

	s.logger.Debug("retrieved context",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Float64("top_score", topScore(results)))

	s.record("user", query)

	contextText := joinChunks(results)
	answerText, genErr := s.generator.Generate(query, contextText)
	if genErr != nil {
		s.logger.Warn("generation failed, returning retrieved context only", zap.Error(genErr))
		s.record("assistant", "(generation unavailable)")
		return domain.Answer{Degraded: true, Context: results}, nil
	}

	s.record("assistant", answerText)
	return domain.Answer{Text: answerText, Context: results}, nil
}

// Transcript returns the persisted chat transcript, oldest first.
func (s *Session) Transcript() ([]domain.Message, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Transcript()
}

// applySources rebuilds chunks and matrix for the given source set off to
// the side, then publishes sources and index together. In-flight readers
// keep the old snapshot until the swap.
func (s *Session) applySources(sources []domain.Source) error {
	idx, err := s.buildIndex(sources)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sources = sources
	s.index = idx
	s.mu.Unlock()

	s.logger.Debug("index rebuilt",
		zap.Int("sources", len(sources)),
		zap.Int("chunks", chunkCount(idx)),
		zap.Uint64("generation", generation(idx)))

	return s.persist(sources, idx)
}

func (s *Session) buildIndex(sources []domain.Source) (*domain.Index, error) {
	gen := s.nextGeneration()
	if len(sources) == 0 {
		return nil, nil
	}

	texts := make([]string, len(sources))
	for i, src := range sources {
		texts[i] = src.Text
	}
	corpus := strings.Join(texts, sourceSeparator)

	ck, err := chunker.New(s.cfg.Chunking.Size, s.cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	chunks := ck.Chunk(corpus)
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := s.embedChunks(chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	return &domain.Index{
		Chunks:     chunks,
		Vectors:    vectors,
		Model:      s.embedder.ModelName(),
		Generation: gen,
	}, nil
}

// embedChunks encodes the chunk texts in batches so progress can be
// reported during long re-embeds.
func (s *Session) embedChunks(chunks []domain.Chunk) ([][]float32, error) {
	batchSize := s.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := s.embedder.Embed(texts)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)

		if s.onProgress != nil {
			s.onProgress(len(vectors), len(chunks))
		}
	}
	return vectors, nil
}

func (s *Session) persist(sources []domain.Source, idx *domain.Index) error {
	if s.store == nil {
		return nil
	}

	// Persist the counter itself, not the index's generation: an empty
	// rebuild has no index but still advanced the counter, and a restart
	// must not hand out generation numbers a dead index already used.
	s.mu.RLock()
	gen := s.lastGen
	s.mu.RUnlock()

	snap := domain.Snapshot{
		Model:      s.embedder.ModelName(),
		Generation: gen,
		Sources:    sources,
	}
	if idx != nil {
		snap.Chunks = idx.Chunks
		snap.Vectors = idx.Vectors
	}
	if err := s.store.SaveSnapshot(snap); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Session) record(role, content string) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendMessage(domain.Message{Role: role, Content: content, Time: time.Now()}); err != nil {
		s.logger.Warn("failed to record transcript message", zap.Error(err))
	}
}

func (s *Session) snapshotSources() []domain.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

func (s *Session) nextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGen++
	return s.lastGen
}

func upsertSource(sources []domain.Source, src domain.Source) []domain.Source {
	for i, existing := range sources {
		if existing.ID == src.ID {
			sources[i] = src
			return sources
		}
	}
	return append(sources, src)
}

func filterByScore(results []domain.ScoredChunk, min float64) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score >= min {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func joinChunks(results []domain.ScoredChunk) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return strings.Join(texts, contextSeparator)
}

func topScore(results []domain.ScoredChunk) float64 {
	if len(results) == 0 {
		return 0
	}
	return results[0].Score
}

func chunkCount(idx *domain.Index) int {
	if idx == nil {
		return 0
	}
	return len(idx.Chunks)
}

func generation(idx *domain.Index) uint64 {
	if idx == nil {
		return 0
	}
	return idx.Generation
}

// sourceID is stable per (kind, descriptor) so re-adding a source replaces
// it instead of duplicating it.
func sourceID(kind domain.SourceKind, descriptor string) string {
	hash := sha256.Sum256([]byte(string(kind) + ":" + descriptor))
	return hex.EncodeToString(hash[:8])
}
