package results

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/medquorum/medquorum/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore persists records in SQLite. The full record is stored as a
// JSON payload; a few columns are broken out for indexing and summaries.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath, creating directories and
// applying the schema as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range splitStatements(migrationV1) {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (s *SQLiteStore) Append(ctx context.Context, rec core.ResultRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %d: %w", rec.Idx, err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (idx, run_id, pred_answer, gold_answer, consensus, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Idx, rec.RunID, rec.PredAnswer, rec.GoldAnswer, string(rec.Consensus),
		string(payload), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting record %d: %w", rec.Idx, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]core.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []core.ResultRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec core.ResultRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, core.ErrState(core.CodeStoreCorrupted, "malformed stored record").WithCause(err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, idx int) (*core.ResultRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE idx = ? ORDER BY id DESC LIMIT 1`, idx,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("result record", fmt.Sprintf("%d", idx))
	}
	if err != nil {
		return nil, fmt.Errorf("querying record %d: %w", idx, err)
	}

	var rec core.ResultRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "malformed stored record").WithCause(err)
	}
	return &rec, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
