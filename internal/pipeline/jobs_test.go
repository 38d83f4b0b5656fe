package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docrank/internal/report"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob(Request{Persona: "Chef", Job: "Cook", Documents: []string{"a.pdf", "b.pdf"}}, "/tmp/job-dir")
	if job.ID == "" {
		t.Fatal("expected job ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Progress.DocumentsTotal != 2 {
		t.Errorf("expected 2 documents, got %d", job.Progress.DocumentsTotal)
	}
	req := job.Request()
	if req.InputDir != "/tmp/job-dir" {
		t.Errorf("expected input dir from work dir, got %q", req.InputDir)
	}
	if req.Observer != job {
		t.Error("expected job to observe its own run")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{ID: "test-1", Status: StatusQueued, UpdatedAt: time.Now()}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusRunning, "starting"},
		{StatusRunning, "decoding"},
		{StatusCompleted, "done"},
	}
	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_ObserverProgress(t *testing.T) {
	job := NewJob(Request{Documents: []string{"a.pdf", "b.pdf", "c.pdf"}}, "")
	job.EnterPhase("decoding")
	job.DocumentDone("a.pdf", nil)
	job.DocumentDone("b.pdf", errors.New("missing"))
	job.DocumentDone("c.pdf", nil)

	snap := job.Snapshot()
	if snap.Phase != "decoding" {
		t.Errorf("expected phase %q, got %q", "decoding", snap.Phase)
	}
	if snap.Progress.DocumentsDone != 3 || snap.Progress.DocumentsSkipped != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "b.pdf: missing" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestJob_Complete(t *testing.T) {
	job := NewJob(Request{}, "")
	if job.Result() != nil {
		t.Fatal("expected no result before completion")
	}
	res := &report.Result{}
	job.Complete(res)
	if job.Result() != res {
		t.Error("expected stored result")
	}
	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Result != res {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if snap.Documents == nil {
		t.Error("expected non-nil documents slice in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(time.Minute)
	old := time.Now().Add(-2 * time.Minute)

	store.Put(&Job{ID: "done-old", Status: StatusCompleted, UpdatedAt: old})
	store.Put(&Job{ID: "failed-old", Status: StatusFailed, UpdatedAt: old})
	store.Put(&Job{ID: "running-old", Status: StatusRunning, UpdatedAt: old})
	store.Put(&Job{ID: "done-new", Status: StatusCompleted, UpdatedAt: time.Now()})

	if n := store.Cleanup(); n != 2 {
		t.Errorf("expected 2 evictions, got %d", n)
	}

	if store.Get("done-old") != nil || store.Get("failed-old") != nil {
		t.Error("expected expired finished jobs to be cleaned up")
	}
	if store.Get("running-old") == nil {
		t.Error("expected running job to survive cleanup")
	}
	if store.Get("done-new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 jobs, got %d", store.Len())
	}
}

func TestJobStore_CleanupUsesClock(t *testing.T) {
	store := NewJobStore(time.Hour)
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	store.Put(&Job{ID: "done", Status: StatusCompleted, UpdatedAt: base})

	store.now = func() time.Time { return base.Add(30 * time.Minute) }
	if n := store.Cleanup(); n != 0 {
		t.Fatalf("expected nothing evicted inside the TTL, got %d", n)
	}

	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	if n := store.Cleanup(); n != 1 {
		t.Fatalf("expected 1 eviction after the TTL, got %d", n)
	}
}

func TestNewRunID(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for range 1000 {
		id := NewRunID()
		if len(id) != 26 {
			t.Fatalf("expected 26 characters, got %d (%q)", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if id <= prev {
			t.Fatalf("expected increasing ids, got %q after %q", id, prev)
		}
		prev = id
	}
}

func TestEncodeCrockford(t *testing.T) {
	var zero [16]byte
	if got := encodeCrockford(zero); got != "00000000000000000000000000" {
		t.Errorf("unexpected zero encoding %q", got)
	}
	var ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeCrockford(ones); got != "7ZZZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("unexpected max encoding %q", got)
	}
}
