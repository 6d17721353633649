// Package searchindex records search index rebuild tasks after a restore.
// The tasks are picked up by the search service; this package only creates
// them.
package searchindex

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pateepk/agilesite-ci/internal/model"
)

type Queue struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

// EnqueueRebuild creates one pending rebuild task per searchable type in
// types. Types that already have a pending rebuild task are skipped. It
// returns the ids of the tasks created.
func (q *Queue) EnqueueRebuild(ctx context.Context, types []*model.TypeInfo, runID string) ([]string, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var runIDArg any
	if runID != "" {
		runIDArg = runID
	}
	now := q.now().UTC().Format(time.RFC3339Nano)

	var ids []string
	for _, info := range types {
		if !info.Searchable {
			continue
		}

		var pending int
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM search_task
WHERE status = ? AND task_type = ? AND object_type = ?;
`, StatusPending, TaskTypeRebuild, info.Name).Scan(&pending)
		if err != nil {
			return nil, fmt.Errorf("check pending task for %s: %w", info.Name, err)
		}
		if pending > 0 {
			continue
		}

		id := uuid.NewString()
		_, err = tx.ExecContext(ctx, `
INSERT INTO search_task(id, task_type, object_type, status, created_at, run_id)
VALUES(?, ?, ?, ?, ?, ?);
`, id, TaskTypeRebuild, info.Name, StatusPending, now, runIDArg)
		if err != nil {
			return nil, fmt.Errorf("enqueue rebuild of %s: %w", info.Name, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

// Pending lists pending tasks, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, task_type, object_type, status, created_at, run_id
FROM search_task
WHERE status = ?
ORDER BY created_at ASC, rowid ASC;
`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t          Task
			statusS    string
			createdAtS string
			runID      sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.TaskType, &t.ObjectType, &statusS, &createdAtS, &runID); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = Status(statusS)
		if ts, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
			t.CreatedAt = ts
		}
		if runID.Valid {
			t.RunID = &runID.String
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return out, nil
}

// Complete marks a task done.
func (q *Queue) Complete(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE search_task SET status = ? WHERE id = ?;`, StatusDone, id)
	if err != nil {
		return fmt.Errorf("complete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}
