package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"lecturmate/internal/domain"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(model string) domain.Snapshot {
	return domain.Snapshot{
		Model:      model,
		Generation: 3,
		Sources: []domain.Source{
			{ID: "abc123", Kind: domain.SourceText, Label: "notes.txt", Text: "some text", AddedAt: time.Unix(1700000000, 0).UTC()},
		},
		Chunks:  []domain.Chunk{{Index: 0, Start: 0, Text: "some text"}},
		Vectors: [][]float32{{0.1, 0.2, 0.3}},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := sampleSnapshot("all-minilm")
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.LoadSnapshot("all-minilm")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected snapshot to exist")
	}

	want.Version = snapshotVersion
	if !reflect.DeepEqual(got, want) {
		t.Errorf("snapshot changed across save/load:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LoadSnapshot("all-minilm")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no snapshot in a fresh store")
	}
}

func TestLoadSnapshotModelMismatch(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSnapshot(sampleSnapshot("all-minilm")); err != nil {
		t.Fatal(err)
	}

	_, _, err := s.LoadSnapshot("text-embedding-3-small")
	if !errors.Is(err, domain.ErrModelMismatch) {
		t.Errorf("expected ErrModelMismatch, got %v", err)
	}
}

func TestSaveSnapshotReplaces(t *testing.T) {
	s := newTestStore(t)

	first := sampleSnapshot("all-minilm")
	if err := s.SaveSnapshot(first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Generation = 4
	second.Chunks = nil
	second.Vectors = nil
	second.Sources = nil
	if err := s.SaveSnapshot(second); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.LoadSnapshot("all-minilm")
	if err != nil || !ok {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	if got.Generation != 4 || len(got.Chunks) != 0 {
		t.Errorf("expected the second snapshot, got %+v", got)
	}
}

func TestTranscriptOrder(t *testing.T) {
	s := newTestStore(t)

	msgs := []domain.Message{
		{Role: "user", Content: "first", Time: time.Unix(1, 0).UTC()},
		{Role: "assistant", Content: "second", Time: time.Unix(2, 0).UTC()},
		{Role: "user", Content: "third", Time: time.Unix(3, 0).UTC()},
	}
	for _, m := range msgs {
		if err := s.AppendMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Transcript()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, msgs) {
		t.Errorf("transcript out of order:\n got %+v\nwant %+v", got, msgs)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSnapshot(sampleSnapshot("all-minilm")); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(domain.Message{Role: "user", Content: "hi"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := s.LoadSnapshot("all-minilm"); ok {
		t.Error("snapshot survived reset")
	}
	if msgs, _ := s.Transcript(); len(msgs) != 0 {
		t.Errorf("transcript survived reset: %d messages", len(msgs))
	}
}
