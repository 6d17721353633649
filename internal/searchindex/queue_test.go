package searchindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/storage"
)

func openQueue(t *testing.T) *Queue {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cms.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestEnqueueRebuildOnlySearchableTypes(t *testing.T) {
	t.Parallel()

	q := openQueue(t)
	types := []*model.TypeInfo{
		{Name: "cms.user", Searchable: true},
		{Name: "cms.role"},
		{Name: "cms.pagetemplate", Searchable: true},
	}

	ids, err := q.EnqueueRebuild(context.Background(), types, "run-1")
	if err != nil {
		t.Fatalf("EnqueueRebuild: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("created %d tasks, want 2", len(ids))
	}

	pending, err := q.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	got := map[string]bool{}
	for _, task := range pending {
		got[task.ObjectType] = true
		if task.TaskType != TaskTypeRebuild || task.Status != StatusPending {
			t.Fatalf("unexpected task: %#v", task)
		}
		if task.RunID == nil || *task.RunID != "run-1" {
			t.Fatalf("run id not stored: %#v", task)
		}
	}
	if !got["cms.user"] || !got["cms.pagetemplate"] || got["cms.role"] {
		t.Fatalf("unexpected task types: %v", got)
	}
}

func TestEnqueueRebuildDeduplicatesPending(t *testing.T) {
	t.Parallel()

	q := openQueue(t)
	types := []*model.TypeInfo{{Name: "cms.user", Searchable: true}}

	first, err := q.EnqueueRebuild(context.Background(), types, "")
	if err != nil || len(first) != 1 {
		t.Fatalf("first EnqueueRebuild = %v, %v", first, err)
	}
	second, err := q.EnqueueRebuild(context.Background(), types, "")
	if err != nil {
		t.Fatalf("second EnqueueRebuild: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("pending task duplicated: %v", second)
	}

	if err := q.Complete(context.Background(), first[0]); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	third, err := q.EnqueueRebuild(context.Background(), types, "")
	if err != nil || len(third) != 1 {
		t.Fatalf("EnqueueRebuild after completion = %v, %v", third, err)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	t.Parallel()

	q := openQueue(t)
	if err := q.Complete(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}
