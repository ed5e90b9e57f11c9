package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"orcamentos/internal/core"
	"orcamentos/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

// DSN builds the modernc connection string for a database file with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO usuarios (nome, email, senha_hash) VALUES (?, ?, ?)`,
		u.Name, core.NormalizeEmail(u.Email), u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "id", id)
	return id, nil
}

const userColumns = `id, nome, email, senha_hash, criado_em`

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM usuarios WHERE email = ?`, core.NormalizeEmail(email))
	return scanUser(row)
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u       core.User
		created any
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, store.ErrUserNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

func (r *Repository) CreateBudgetEntry(ctx context.Context, e core.BudgetEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orcamentos (titulo, ano, valor_previsto_cents, valor_executado_cents, descricao, usuario_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Title, e.Year, e.Planned.Cents, e.Executed.Cents, e.Description, e.OwnerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, store.ErrUserNotFound
		}
		return 0, fmt.Errorf("insert budget entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget entry id: %w", err)
	}

	slog.InfoContext(ctx, "Budget entry saved to SQLite",
		"id", id,
		"owner_id", e.OwnerID,
		"year", e.Year,
		"planned_cents", e.Planned.Cents,
		"executed_cents", e.Executed.Cents)

	return id, nil
}

const budgetColumns = `id, titulo, ano, valor_previsto_cents, valor_executado_cents, descricao, usuario_id, criado_em`

func (r *Repository) GetBudgetEntry(ctx context.Context, id int64) (core.BudgetEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM orcamentos WHERE id = ?`, id)
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("get budget entry %d: %w", id, err)
	}
	entries, err := scanBudgetEntries(rows)
	if err != nil {
		return core.BudgetEntry{}, err
	}
	if len(entries) == 0 {
		return core.BudgetEntry{}, store.ErrBudgetNotFound
	}
	return entries[0], nil
}

func (r *Repository) ListBudgetEntries(ctx context.Context) ([]core.BudgetEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM orcamentos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list budget entries: %w", err)
	}
	return scanBudgetEntries(rows)
}

func (r *Repository) ListBudgetEntriesByOwner(ctx context.Context, ownerID int64) ([]core.BudgetEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM orcamentos WHERE usuario_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budget entries for user %d: %w", ownerID, err)
	}
	return scanBudgetEntries(rows)
}

func scanBudgetEntries(rows *sql.Rows) ([]core.BudgetEntry, error) {
	defer rows.Close()
	out := []core.BudgetEntry{}
	for rows.Next() {
		var (
			e       core.BudgetEntry
			created any
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Year, &e.Planned.Cents, &e.Executed.Cents,
			&e.Description, &e.OwnerID, &created); err != nil {
			return nil, fmt.Errorf("scan budget entry: %w", err)
		}
		e.CreatedAt = parseTimestamp(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget entries: %w", err)
	}
	return out, nil
}

// parseTimestamp accepts either a driver-parsed time or the raw CURRENT_TIMESTAMP text.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseTimestampText(t)
	case []byte:
		return parseTimestampText(string(t))
	}
	return time.Time{}
}

func parseTimestampText(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
