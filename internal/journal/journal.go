package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/emberhaus/ember-core/internal/heating"
	"github.com/emberhaus/ember-core/internal/infrastructure/database"
)

// List limits. Requests above the maximum are clamped, not rejected.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository persists resolved thermostat commands in SQLite. It is
// the heating actuator's journal and the data source for the status
// API's command history.
type Repository struct {
	db *database.DB
}

// New creates a repository on an already-migrated database.
func New(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts one resolved command.
func (r *Repository) Record(ctx context.Context, entry heating.JournalEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actuation_journal
			(id, room, entity_id, target, source, attempts, outcome, issued_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Room, entry.EntityID, entry.Target, entry.Source,
		entry.Attempts, entry.Outcome,
		entry.IssuedAt.UTC().Format(time.RFC3339Nano),
		entry.ResolvedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording journal entry %s: %w", entry.ID, err)
	}
	return nil
}

// ListFilter narrows a List query.
type ListFilter struct {
	// Room restricts results to one room; empty means all rooms.
	Room string

	// Limit caps the result count. Zero applies the default.
	Limit int
}

// List returns resolved commands, most recently issued first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]heating.JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, room, entity_id, target, source, attempts, outcome, issued_at, resolved_at
		FROM actuation_journal`
	args := []interface{}{}
	if filter.Room != "" {
		query += ` WHERE room = ?`
		args = append(args, filter.Room)
	}
	query += ` ORDER BY issued_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var entries []heating.JournalEntry
	for rows.Next() {
		var entry heating.JournalEntry
		var issuedAt, resolvedAt string
		if err := rows.Scan(&entry.ID, &entry.Room, &entry.EntityID, &entry.Target,
			&entry.Source, &entry.Attempts, &entry.Outcome, &issuedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		if entry.IssuedAt, err = time.Parse(time.RFC3339Nano, issuedAt); err != nil {
			return nil, fmt.Errorf("parsing issued_at %q: %w", issuedAt, err)
		}
		if entry.ResolvedAt, err = time.Parse(time.RFC3339Nano, resolvedAt); err != nil {
			return nil, fmt.Errorf("parsing resolved_at %q: %w", resolvedAt, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}
	return entries, nil
}

// Purge deletes entries issued before the cutoff and returns how many
// were removed.
func (r *Repository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM actuation_journal WHERE issued_at < ?`,
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purging journal: %w", err)
	}
	return result.RowsAffected()
}
