package store

import (
	"context"
	"testing"
	"time"
)

func TestPut_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := testRecord("/data/a.txt", 1)
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, ok, err := s.Get(ctx, rec.Path)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok {
		t.Fatal("Get() found no record")
	}
	if got.Digest != rec.Digest {
		t.Errorf("digest = %q, want %q", got.Digest, rec.Digest)
	}
	if !got.RegisteredAt.Equal(rec.RegisteredAt) {
		t.Errorf("registered_at = %v, want %v", got.RegisteredAt, rec.RegisteredAt)
	}
}

func TestPut_OverwritesDigest(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if err := s.Put(ctx, testRecord("/data/a.txt", 1)); err != nil {
		t.Fatalf("first Put() failed: %v", err)
	}
	second := testRecord("/data/a.txt", 2)
	second.RegisteredAt = second.RegisteredAt.Add(time.Hour)
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	got, _, err := s.Get(ctx, "/data/a.txt")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Digest != second.Digest {
		t.Errorf("digest = %q, want last write %q", got.Digest, second.Digest)
	}
	if !got.RegisteredAt.Equal(second.RegisteredAt) {
		t.Errorf("registered_at = %v, want %v", got.RegisteredAt, second.RegisteredAt)
	}

	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1 (path is unique)", n)
	}
}

func TestPut_ZeroTimeStoredAsNull(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if err := s.Put(ctx, Record{Path: "/legacy", Digest: testRecord("", 3).Digest}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	var isNull bool
	if err := s.db.QueryRow(`SELECT registered_at IS NULL FROM files WHERE path = ?`, "/legacy").Scan(&isNull); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !isNull {
		t.Error("zero registered_at should be stored as NULL")
	}

	got, _, _ := s.Get(ctx, "/legacy")
	if !got.RegisteredAt.IsZero() {
		t.Errorf("registered_at = %v, want zero", got.RegisteredAt)
	}
}

func TestPut_EmptyPath(t *testing.T) {
	s := createTestStore(t)
	if err := s.Put(context.Background(), Record{Digest: "x"}); err == nil {
		t.Error("Put() with empty path should fail")
	}
}

func TestPut_QuoteCharactersInPath(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	paths := []string{
		`/data/it's.txt`,
		`/data/say "hi".txt`,
		`/data/"); DROP TABLE files; --.txt`,
		`/data/100%_done.txt`,
	}
	for i, p := range paths {
		if err := s.Put(ctx, testRecord(p, i)); err != nil {
			t.Fatalf("Put(%q) failed: %v", p, err)
		}
	}

	for i, p := range paths {
		got, ok, err := s.Get(ctx, p)
		if err != nil || !ok {
			t.Fatalf("Get(%q) = ok %v, err %v", p, ok, err)
		}
		if got.Digest != testRecord(p, i).Digest {
			t.Errorf("Get(%q) digest mismatch", p)
		}
	}

	n, _ := s.Count(ctx)
	if n != len(paths) {
		t.Errorf("Count() = %d, want %d", n, len(paths))
	}
}

func TestPutMany(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	recs := []Record{
		testRecord("/m/a", 1),
		testRecord("/m/b", 2),
		testRecord("/m/a", 3), // later duplicate wins
	}
	if err := s.PutMany(ctx, recs); err != nil {
		t.Fatalf("PutMany() failed: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	got, _, _ := s.Get(ctx, "/m/a")
	if got.Digest != testRecord("", 3).Digest {
		t.Errorf("digest = %q, want last write", got.Digest)
	}
}

func TestPutMany_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	recs := []Record{
		testRecord("/m/a", 1),
		{Path: "", Digest: "bad"},
	}
	if err := s.PutMany(ctx, recs); err == nil {
		t.Fatal("PutMany() with an empty path should fail")
	}

	n, _ := s.Count(ctx)
	if n != 0 {
		t.Errorf("Count() = %d after failed batch, want 0", n)
	}
}

func TestPutMany_Empty(t *testing.T) {
	s := createTestStore(t)
	if err := s.PutMany(context.Background(), nil); err != nil {
		t.Errorf("PutMany(nil) failed: %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if err := s.Put(ctx, testRecord("/data/a.txt", 1)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	removed, err := s.Remove(ctx, "/data/a.txt")
	if err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if !removed {
		t.Error("Remove() reported nothing removed")
	}

	if _, ok, _ := s.Get(ctx, "/data/a.txt"); ok {
		t.Error("record still present after Remove()")
	}
}

func TestRemove_MissingIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if err := s.Put(ctx, testRecord("/data/keep.txt", 1)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	removed, err := s.Remove(ctx, "/data/never-registered.txt")
	if err != nil {
		t.Fatalf("Remove() of unknown path failed: %v", err)
	}
	if removed {
		t.Error("Remove() of unknown path reported a removal")
	}

	recs, _ := s.List(ctx)
	if len(recs) != 1 || recs[0].Path != "/data/keep.txt" {
		t.Errorf("store changed by no-op Remove(): %+v", recs)
	}
}
