// Package journal keeps a local SQLite record of every create, update and
// delete sent to the remote store, including the ones that were rolled back.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"sheetsync/internal/journal/migrations"
	"sheetsync/internal/store"
)

// ErrNoSchema reports a journal that was never migrated.
var ErrNoSchema = migrations.ErrNoSchema

// SQLiteJournal implements store.Journal on SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens the journal at path, or an in-memory journal for
// ":memory:". The schema is not migrated; see MigrateUp.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if path == ":memory:" {
		// Each new connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring journal: %w", err)
	}
	return db, nil
}

// BeginMutation inserts m and sets m.ID.
func (j *SQLiteJournal) BeginMutation(m *store.Mutation) error {
	res, err := j.db.Exec(
		`INSERT INTO mutations (kind, op, record_id, temp_id, status, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Kind, string(m.Op), m.RecordID, m.TempID, string(m.Status), m.Error, m.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting mutation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading mutation id: %w", err)
	}
	m.ID = id
	return nil
}

// FinishMutation stores the outcome of m. m must have been begun.
func (j *SQLiteJournal) FinishMutation(m *store.Mutation) error {
	if m.ID == 0 {
		return errors.New("finishing mutation: mutation was never begun")
	}
	var finished sql.NullTime
	if m.FinishedAt != nil {
		finished = sql.NullTime{Time: m.FinishedAt.UTC(), Valid: true}
	}
	res, err := j.db.Exec(
		`UPDATE mutations SET record_id = ?, status = ?, error = ?, finished_at = ? WHERE id = ?`,
		m.RecordID, string(m.Status), m.Error, finished, m.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing mutation %d: %w", m.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing mutation %d: no such mutation", m.ID)
	}
	return nil
}

// ListMutations returns the most recent mutations, newest first. A limit of
// zero or less returns all of them.
func (j *SQLiteJournal) ListMutations(limit int) ([]*store.Mutation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(
		`SELECT id, kind, op, record_id, temp_id, status, error, started_at, finished_at
		 FROM mutations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing mutations: %w", err)
	}
	defer rows.Close()

	var out []*store.Mutation
	for rows.Next() {
		var (
			m        store.Mutation
			op       string
			status   string
			finished sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.Kind, &op, &m.RecordID, &m.TempID, &status, &m.Error, &m.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning mutation: %w", err)
		}
		m.Op = store.Op(op)
		m.Status = store.Status(status)
		if finished.Valid {
			t := finished.Time
			m.FinishedAt = &t
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing mutations: %w", err)
	}
	return out, nil
}

// CountByStatus returns the number of journaled mutations per status since
// the given time.
func (j *SQLiteJournal) CountByStatus(since time.Time) (map[store.Status]int, error) {
	rows, err := j.db.Query(
		`SELECT status, COUNT(*) FROM mutations WHERE started_at >= ? GROUP BY status`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("counting mutations: %w", err)
	}
	defer rows.Close()

	counts := map[store.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning mutation count: %w", err)
		}
		counts[store.Status(status)] = n
	}
	return counts, rows.Err()
}

// Path returns the journal file path, or ":memory:".
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckMigrations verifies the schema is up to date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckStatus(j.db)
}

// MigrateUp applies pending schema migrations.
func (j *SQLiteJournal) MigrateUp() error {
	return migrations.Up(j.db)
}

// BackupTo writes a consistent copy of the journal to destPath.
func (j *SQLiteJournal) BackupTo(destPath string) error {
	if _, err := j.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up journal: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

var _ store.Journal = (*SQLiteJournal)(nil)
