package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultTable is the history table name.
const DefaultTable = "import_history"

// DBTX is the subset of *pgxpool.Pool used by PostgresStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps import history in PostgreSQL.
type PostgresStore struct {
	db    DBTX
	table string
}

// NewPostgresStore creates the history table if needed and returns a store.
func NewPostgresStore(ctx context.Context, db DBTX) (*PostgresStore, error) {
	s := &PostgresStore{db: db, table: DefaultTable}
	for _, stmt := range schemaSQL(s.table) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create %s: %w", s.table, err)
		}
	}
	return s, nil
}

// Add inserts r.
func (s *PostgresStore) Add(ctx context.Context, r Record) error {
	violations := r.Violations
	if violations == nil {
		violations = []string{}
	}
	_, err := s.db.Exec(ctx, insertSQL(s.table),
		pgtype.UUID{Bytes: r.ID, Valid: true},
		r.Filename,
		r.StoredPath,
		r.FileHash,
		r.Rows,
		string(r.Status),
		violations,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import %s: %w", r.ID, err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.Query(ctx, listSQL(s.table), limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			r      Record
			id     pgtype.UUID
			status string
		)
		if err := rows.Scan(&id, &r.Filename, &r.StoredPath, &r.FileHash,
			&r.Rows, &status, &r.Violations, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		r.ID = uuid.UUID(id.Bytes)
		r.Status = Status(status)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// historyColumns is the column order shared by insert and select.
var historyColumns = []string{
	"id", "filename", "stored_path", "file_hash", "row_count", "status", "violations", "created_at",
}

// schemaSQL returns the statements that create the table and its index.
func schemaSQL(table string) []string {
	t := quoteIdentifier(table)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	filename TEXT NOT NULL,
	stored_path TEXT NOT NULL DEFAULT '',
	file_hash TEXT NOT NULL DEFAULT '',
	row_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL CHECK (status IN ('accepted', 'rejected')),
	violations TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, t),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (created_at DESC)",
			quoteIdentifier(table+"_created_at_idx"), t),
	}
}

func insertSQL(table string) string {
	placeholders := make([]string, len(historyColumns))
	for i := range historyColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table),
		strings.Join(quoteColumns(historyColumns), ", "),
		strings.Join(placeholders, ", "),
	)
}

func listSQL(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1",
		strings.Join(quoteColumns(historyColumns), ", "),
		quoteIdentifier(table),
	)
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdentifier(c)
	}
	return out
}
