package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/storage"
)

func makeDoc(id, text string, embedding []float32) api.Document {
	return api.Document{
		ID:        id,
		Text:      text,
		Metadata:  map[string]string{api.MetadataFilename: id + ".txt"},
		Embedding: embedding,
	}
}

func TestAddAndListAll(t *testing.T) {
	s := New()
	ctx := context.Background()

	docs := []api.Document{
		makeDoc("a", "first", []float32{1, 0}),
		makeDoc("b", "second", []float32{0, 1}),
	}
	if err := s.Add(ctx, docs); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("insertion order not preserved: %q, %q", got[0].ID, got[1].ID)
	}
	if got[0].Text != "first" {
		t.Errorf("Text = %q, want %q", got[0].Text, "first")
	}
	if got[0].Metadata[api.MetadataFilename] != "a.txt" {
		t.Errorf("filename metadata = %q, want %q", got[0].Metadata[api.MetadataFilename], "a.txt")
	}
	if got[0].Embedding != nil {
		t.Error("ListAll must not return embeddings")
	}
}

func TestAddDuplicateIDAcrossBatches(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Add(ctx, []api.Document{makeDoc("a", "x", []float32{1})}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := s.Add(ctx, []api.Document{makeDoc("a", "y", []float32{2})})
	if !errors.Is(err, storage.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestAddDimensionMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Add(ctx, []api.Document{makeDoc("a", "x", []float32{1, 2, 3})}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := s.Add(ctx, []api.Document{makeDoc("b", "y", []float32{1, 2})})
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	// The rejected batch must not have been applied.
	docs, _ := s.ListAll(ctx)
	if len(docs) != 1 {
		t.Errorf("corpus size = %d after rejected batch, want 1", len(docs))
	}
}

func TestRejectedBatchLeavesCorpusUnchanged(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Batch with an internal duplicate: nothing may be committed.
	err := s.Add(ctx, []api.Document{
		makeDoc("a", "x", []float32{1}),
		makeDoc("a", "y", []float32{2}),
	})
	if !errors.Is(err, storage.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	docs, _ := s.ListAll(ctx)
	if len(docs) != 0 {
		t.Errorf("corpus size = %d after rejected batch, want 0", len(docs))
	}
}

func TestQueryOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Add(ctx, []api.Document{
		makeDoc("far", "far", []float32{0, 1}),
		makeDoc("near", "near", []float32{1, 0.1}),
		makeDoc("exact", "exact", []float32{1, 0}),
	})

	matches, err := s.Query(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("len = %d, want 3", len(matches))
	}
	if matches[0].Document.ID != "exact" {
		t.Errorf("closest = %q, want %q", matches[0].Document.ID, "exact")
	}
	if matches[0].Distance > matches[1].Distance || matches[1].Distance > matches[2].Distance {
		t.Error("matches not ordered from closest to farthest")
	}
}

func TestQueryTieBreak(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Identical embeddings: insertion order decides.
	s.Add(ctx, []api.Document{
		makeDoc("a", "x", []float32{1, 1}),
		makeDoc("b", "x", []float32{1, 1}),
		makeDoc("c", "x", []float32{1, 1}),
	})

	for i := 0; i < 5; i++ {
		matches, err := s.Query(ctx, []float32{1, 1}, 3)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if matches[0].Document.ID != "a" || matches[1].Document.ID != "b" || matches[2].Document.ID != "c" {
			t.Fatalf("tie-break order = %q,%q,%q, want a,b,c",
				matches[0].Document.ID, matches[1].Document.ID, matches[2].Document.ID)
		}
	}
}

func TestQueryBoundsK(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Add(ctx, []api.Document{
		makeDoc("a", "x", []float32{1, 0}),
		makeDoc("b", "y", []float32{0, 1}),
	})

	matches, err := s.Query(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("len = %d, want 2 (not padded to k)", len(matches))
	}
}

func TestQueryEmptyCorpus(t *testing.T) {
	s := New()

	matches, err := s.Query(context.Background(), []float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Query on empty store failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len = %d, want 0", len(matches))
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Add(ctx, []api.Document{makeDoc("a", "x", []float32{1, 2, 3})})

	_, err := s.Query(ctx, []float32{1, 2}, 5)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestConcurrentAddAndQuery(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := api.NewDocumentID()
				s.Add(ctx, []api.Document{makeDoc(id, "text", []float32{float32(w), float32(i)})})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Query(ctx, []float32{1, 1}, 5)
				s.ListAll(ctx)
			}
		}()
	}
	wg.Wait()

	docs, _ := s.ListAll(ctx)
	if len(docs) != 200 {
		t.Errorf("corpus size = %d, want 200", len(docs))
	}
}
