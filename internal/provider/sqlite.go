package provider

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pateepk/agilesite-ci/internal/model"
)

// SQLite stores objects in the ci_object table.
type SQLite struct {
	db      *sql.DB
	catalog *model.Catalog
	now     func() time.Time
}

var _ Provider = (*SQLite)(nil)

// NewSQLite creates a provider over an already bootstrapped database.
func NewSQLite(db *sql.DB, catalog *model.Catalog) *SQLite {
	return &SQLite{db: db, catalog: catalog, now: time.Now}
}

func (s *SQLite) TypeInfo(name string) (*model.TypeInfo, error) {
	info, ok := s.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return info, nil
}

func (s *SQLite) Get(ctx context.Context, objectType, site, codeName string) (*model.Object, error) {
	info, err := s.TypeInfo(objectType)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, object_type, site, code_name, guid, parent, fields
FROM ci_object
WHERE object_type = ? AND site = ? AND code_name = ?;
`, info.Name, site, codeName)

	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %q (site %q)", ErrNotFound, info.Name, codeName, site)
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return obj, nil
}

func (s *SQLite) Put(ctx context.Context, obj *model.Object) error {
	if obj == nil {
		return fmt.Errorf("object is nil")
	}
	info, err := s.TypeInfo(obj.Type)
	if err != nil {
		return err
	}
	if strings.TrimSpace(obj.CodeName) == "" {
		return fmt.Errorf("object of type %s has an empty code name", info.Name)
	}
	if obj.GUID == "" {
		obj.GUID = uuid.NewString()
	}

	fields := obj.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	err = s.db.QueryRowContext(ctx, `
INSERT INTO ci_object(object_type, site, code_name, guid, parent, fields, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(object_type, site, code_name) DO UPDATE SET
  guid = excluded.guid,
  parent = excluded.parent,
  fields = excluded.fields,
  updated_at = excluded.updated_at
RETURNING id;
`, info.Name, obj.Site, obj.CodeName, obj.GUID, obj.Parent, string(raw), now).Scan(&obj.ID)
	if err != nil {
		return fmt.Errorf("upsert object %s %q: %w", info.Name, obj.CodeName, err)
	}
	obj.Type = info.Name
	return nil
}

func (s *SQLite) Delete(ctx context.Context, objectType, site, codeName string) error {
	info, err := s.TypeInfo(objectType)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
DELETE FROM ci_object WHERE object_type = ? AND site = ? AND code_name = ?;
`, info.Name, site, codeName)
	if err != nil {
		return fmt.Errorf("delete object %s %q: %w", info.Name, codeName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete object %s %q: %w", info.Name, codeName, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %q (site %q)", ErrNotFound, info.Name, codeName, site)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, objectType string, filter Filter) ([]*model.Object, error) {
	info, err := s.TypeInfo(objectType)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, object_type, site, code_name, guid, parent, fields FROM ci_object WHERE object_type = ?`
	args := []any{info.Name}
	if len(filter.Sites) > 0 {
		query += ` AND site IN (?` + strings.Repeat(", ?", len(filter.Sites)-1) + `)`
		for _, site := range filter.Sites {
			args = append(args, site)
		}
	}
	if filter.Parent != "" {
		query += ` AND parent = ?`
		args = append(args, filter.Parent)
	}
	query += ` ORDER BY site, code_name;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objects %s: %w", info.Name, err)
	}
	defer rows.Close()

	var out []*model.Object
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list objects %s: %w", info.Name, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObject(row scanner) (*model.Object, error) {
	var (
		obj    model.Object
		fields string
	)
	if err := row.Scan(&obj.ID, &obj.Type, &obj.Site, &obj.CodeName, &obj.GUID, &obj.Parent, &fields); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &obj.Fields); err != nil {
		return nil, fmt.Errorf("stored fields are invalid JSON for %s %q: %w", obj.Type, obj.CodeName, err)
	}
	if obj.Fields == nil {
		obj.Fields = map[string]string{}
	}
	return &obj, nil
}
