package usecase

import (
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"lecturmate/config"
	"lecturmate/internal/adapter/retriever"
	"lecturmate/internal/adapter/store"
	"lecturmate/internal/domain"
)

// wordEmbedder hashes lowercased tokens into vector buckets; deterministic
// and good enough for similarity ranking in tests.
type wordEmbedder struct {
	calls int
}

func (e *wordEmbedder) Embed(texts []string) ([][]float32, error) {
	e.calls++
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 256)
		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, tok := range tokens {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[h.Sum32()%256]++
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *wordEmbedder) Dimension() int { return 256 }

func (e *wordEmbedder) ModelName() string { return "word-hash" }

type stubGenerator struct {
	answer string
	err    error
	calls  int
}

func (g *stubGenerator) Generate(query, context string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *stubGenerator) ModelName() string { return "stub" }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Chunking.Size = 40
	cfg.Chunking.Overlap = 10
	cfg.Retrieve.TopK = 2
	return cfg
}

func newTestSession(t *testing.T, gen *stubGenerator) *Session {
	t.Helper()
	emb := &wordEmbedder{}
	return NewSession(testConfig(), emb, retriever.NewCosine(emb), gen, nil, nil)
}

func TestAskBeforeAddingSources(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "hi"})

	_, err := s.Ask("anything at all")
	if !errors.Is(err, domain.ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}

func TestAskEmptyQuery(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "hi"})
	if _, err := s.Ask("   "); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestAddTextThenAsk(t *testing.T) {
	gen := &stubGenerator{answer: "Badminton joined in 1992."}
	s := newTestSession(t, gen)

	src, err := s.AddText("facts", "Badminton debuted in the Olympics in 1992. It is played with a shuttlecock.")
	if err != nil {
		t.Fatal(err)
	}
	if src.ID == "" {
		t.Error("source has no ID")
	}

	st := s.Stats()
	if st.Sources != 1 || st.Chunks == 0 {
		t.Fatalf("unexpected stats after add: %+v", st)
	}

	answer, err := s.Ask("When did badminton join the Olympics?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Degraded {
		t.Error("answer should not be degraded")
	}
	if answer.Text != gen.answer {
		t.Errorf("expected generator answer, got %q", answer.Text)
	}
	if len(answer.Context) == 0 {
		t.Fatal("answer carries no retrieved context")
	}
	if !strings.Contains(answer.Context[0].Chunk.Text, "Olympics") {
		t.Errorf("top context chunk misses the topic: %q", answer.Context[0].Chunk.Text)
	}
}

func TestAddEmptyTextRejected(t *testing.T) {
	s := newTestSession(t, &stubGenerator{})
	if _, err := s.AddText("blank", "   \n  "); err == nil {
		t.Fatal("expected error for empty source text")
	}
	if st := s.Stats(); st.Sources != 0 {
		t.Errorf("failed add mutated the session: %+v", st)
	}
}

func TestReAddReplacesSource(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "ok"})

	if _, err := s.AddText("notes", "first version of the notes"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddText("notes", "second version of the notes"); err != nil {
		t.Fatal(err)
	}

	sources := s.Sources()
	if len(sources) != 1 {
		t.Fatalf("expected 1 source after re-add, got %d", len(sources))
	}
	if sources[0].Text != "second version of the notes" {
		t.Errorf("re-add did not replace the text: %q", sources[0].Text)
	}
}

func TestRemoveSource(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "ok"})

	a, err := s.AddText("a", "alpha text about archery and arrows")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddText("b", "beta text about badminton and birdies"); err != nil {
		t.Fatal(err)
	}

	genBefore := s.Stats().Generation
	if err := s.RemoveSource(a.ID); err != nil {
		t.Fatal(err)
	}

	st := s.Stats()
	if st.Sources != 1 {
		t.Fatalf("expected 1 source, got %d", st.Sources)
	}
	if st.Generation <= genBefore {
		t.Errorf("generation did not advance on removal: %d -> %d", genBefore, st.Generation)
	}

	if err := s.RemoveSource("no-such-id"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestRemoveLastSourceEmptiesSession(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "ok"})

	src, err := s.AddText("only", "the only source in the session")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveSource(src.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Ask("anything"); !errors.Is(err, domain.ErrNoSources) {
		t.Errorf("expected ErrNoSources after removing last source, got %v", err)
	}
}

func TestIndexAlignment(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "ok"})

	if _, err := s.AddText("a", strings.Repeat("alpha beta gamma delta ", 20)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddText("b", strings.Repeat("one two three four ", 15)); err != nil {
		t.Fatal(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.index.Chunks) != len(s.index.Vectors) {
		t.Fatalf("chunks (%d) and vectors (%d) misaligned", len(s.index.Chunks), len(s.index.Vectors))
	}
	for i, c := range s.index.Chunks {
		if c.Index != i {
			t.Fatalf("chunk %d carries Index %d", i, c.Index)
		}
	}
}

func TestGenerationFailureDegrades(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("connection refused")}
	s := newTestSession(t, gen)

	if _, err := s.AddText("facts", "Badminton debuted in the Olympics in 1992."); err != nil {
		t.Fatal(err)
	}

	answer, err := s.Ask("When did badminton join the Olympics?")
	if err != nil {
		t.Fatalf("generation failure must degrade, not error: %v", err)
	}
	if !answer.Degraded {
		t.Error("expected a degraded answer")
	}
	if answer.Text != "" {
		t.Errorf("degraded answer should carry no model text, got %q", answer.Text)
	}
	if len(answer.Context) == 0 {
		t.Error("degraded answer must still carry the retrieved context")
	}
}

func TestProgressCallback(t *testing.T) {
	s := newTestSession(t, &stubGenerator{answer: "ok"})
	s.cfg.Embedding.BatchSize = 2

	var last, total int
	s.SetProgress(func(done, n int) { last, total = done, n })

	if _, err := s.AddText("long", strings.Repeat("words and more words ", 30)); err != nil {
		t.Fatal(err)
	}
	if total == 0 || last != total {
		t.Errorf("progress never completed: last=%d total=%d", last, total)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	emb := &wordEmbedder{}
	s := NewSession(testConfig(), emb, retriever.NewCosine(emb), &stubGenerator{answer: "ok"}, st, nil)

	if _, err := s.AddText("facts", "Badminton debuted in the Olympics in 1992."); err != nil {
		t.Fatal(err)
	}
	embedsBeforeRestore := emb.calls
	st.Close()

	// A new process: same model, restored snapshot, no re-embedding.
	st2, err := store.NewBoltStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()

	s2 := NewSession(testConfig(), emb, retriever.NewCosine(emb), &stubGenerator{answer: "restored"}, st2, nil)
	if err := s2.Restore(); err != nil {
		t.Fatal(err)
	}

	stats := s2.Stats()
	if stats.Sources != 1 || stats.Chunks == 0 {
		t.Fatalf("restore lost state: %+v", stats)
	}
	if emb.calls != embedsBeforeRestore {
		t.Error("restore re-embedded the corpus")
	}

	answer, err := s2.Ask("When did badminton join the Olympics?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "restored" {
		t.Errorf("unexpected answer after restore: %q", answer.Text)
	}
}

func TestGenerationCounterSurvivesEmptyRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	emb := &wordEmbedder{}
	s := NewSession(testConfig(), emb, retriever.NewCosine(emb), &stubGenerator{answer: "ok"}, st, nil)

	src, err := s.AddText("only", "the only source in the session")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveSource(src.ID); err != nil {
		t.Fatal(err)
	}

	s.mu.RLock()
	want := s.lastGen
	s.mu.RUnlock()
	if want < 2 {
		t.Fatalf("expected the counter to advance on add and remove, got %d", want)
	}
	st.Close()

	st2, err := store.NewBoltStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()

	s2 := NewSession(testConfig(), emb, retriever.NewCosine(emb), &stubGenerator{answer: "ok"}, st2, nil)
	if err := s2.Restore(); err != nil {
		t.Fatal(err)
	}

	s2.mu.RLock()
	got := s2.lastGen
	s2.mu.RUnlock()
	if got != want {
		t.Fatalf("counter did not survive the empty-index restart: got %d, want %d", got, want)
	}

	// A fresh add must hand out a generation the old session never used.
	if _, err := s2.AddText("again", "new material after the restart"); err != nil {
		t.Fatal(err)
	}
	if gen := s2.Stats().Generation; gen <= want {
		t.Errorf("new index reused generation %d (counter was at %d)", gen, want)
	}
}

func TestTranscriptRecording(t *testing.T) {
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	emb := &wordEmbedder{}
	s := NewSession(testConfig(), emb, retriever.NewCosine(emb), &stubGenerator{answer: "In 1992."}, st, nil)

	if _, err := s.AddText("facts", "Badminton debuted in the Olympics in 1992."); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ask("When did badminton join the Olympics?"); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.Transcript()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 transcript messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected transcript roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "In 1992." {
		t.Errorf("unexpected assistant message: %q", msgs[1].Content)
	}
}
