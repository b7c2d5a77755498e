package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// errCorruptDocument is returned by queryLoadBuild when the stored JSON does
// not decode into a build with the requested id.
var errCorruptDocument = errors.New("corrupt build document")

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryUpsertBuild(ctx context.Context, db executor, b *model.Build) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding build: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO builds (id, available_at, build_tool_type, document, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			available_at = EXCLUDED.available_at,
			build_tool_type = EXCLUDED.build_tool_type,
			document = EXCLUDED.document,
			updated_at = now()`,
		b.ID,
		b.AvailableAt,
		string(b.BuildToolType),
		doc,
	)
	return err
}

func queryLoadBuild(ctx context.Context, db executor, id string) (*model.Build, error) {
	var doc []byte
	if err := db.QueryRowContext(ctx, `SELECT document FROM builds WHERE id = $1`, id).Scan(&doc); err != nil {
		return nil, err
	}
	var b model.Build
	if err := json.Unmarshal(doc, &b); err != nil || b.ID != id {
		return nil, errCorruptDocument
	}
	return &b, nil
}

func queryDeleteBuild(ctx context.Context, db executor, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM builds WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete build %s: %w", id, err)
	}
	return nil
}

func queryCountBuilds(ctx context.Context, db executor) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count builds: %w", err)
	}
	return n, nil
}

func queryPruneBuilds(ctx context.Context, db executor, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM builds WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	return n, nil
}
