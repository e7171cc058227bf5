// Package statestore persists entity state for the bridge. It is a
// namespaced key-value store backed by SQLite: each entity has one primary
// state value plus optional named attributes (a climate entity stores its
// mode as primary state and preset/temperature as attributes on the same
// key). The namespace column isolates this bridge's entities from anything
// else sharing the database.
package statestore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// primaryAttr is the attribute column value for an entity's primary state
// row. SQLite primary keys cannot contain NULL, so the empty string marks
// "no attribute".
const primaryAttr = ""

// Store is a namespaced entity state store backed by SQLite. All public
// methods are safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// NewStore creates an entity state store at the given database path.
// The schema is created automatically on first use.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entity_state (
		namespace  TEXT NOT NULL,
		entity_id  TEXT NOT NULL,
		attribute  TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, entity_id, attribute)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// get returns the stored value for an entity's primary state (attribute ==
// "") or a named attribute. ok is false if no row exists.
func (s *Store) get(namespace, entityID, attribute string) (value string, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT value FROM entity_state WHERE namespace = ? AND entity_id = ? AND attribute = ?`,
		namespace, entityID, attribute,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s[%s]: %w", namespace, entityID, attribute, err)
	}
	return value, true, nil
}

// set upserts one state row. Existing values are overwritten and the
// updated_at timestamp is refreshed.
func (s *Store) set(namespace, entityID, attribute, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO entity_state (namespace, entity_id, attribute, value, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, entity_id, attribute) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, entityID, attribute, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s[%s]: %w", namespace, entityID, attribute, err)
	}
	return nil
}

// DeleteNamespace removes all entries for a namespace. No error is
// returned if the namespace has no entries.
func (s *Store) DeleteNamespace(namespace string) error {
	_, err := s.db.Exec(
		`DELETE FROM entity_state WHERE namespace = ?`,
		namespace,
	)
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", namespace, err)
	}
	return nil
}

// List returns all state rows for a namespace as "entity_id" or
// "entity_id.attribute" keys. Returns an empty (non-nil) map if the
// namespace has no entries.
func (s *Store) List(namespace string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT entity_id, attribute, value FROM entity_state WHERE namespace = ? ORDER BY entity_id, attribute`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var id, attr, v string
		if err := rows.Scan(&id, &attr, &v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", namespace, err)
		}
		key := id
		if attr != primaryAttr {
			key = id + "." + attr
		}
		result[key] = v
	}
	return result, rows.Err()
}
