package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the requested account does not exist.
var ErrNotFound = errors.New("directory: not found")

// Store is the SQLite-backed account directory.
type Store struct {
	db *sql.DB
}

// Open opens the directory database and ensures its schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open directory database: %w", err)
	}
	store := &Store{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			unique_id      TEXT PRIMARY KEY,
			username       TEXT NOT NULL,
			kind           TEXT NOT NULL CHECK (kind IN ('user', 'resource')),
			display_name   TEXT NOT NULL DEFAULT '',
			email          TEXT NOT NULL DEFAULT '',
			owner_username TEXT NOT NULL DEFAULT '',
			resource_name  TEXT NOT NULL DEFAULT '',
			attributes     TEXT NOT NULL DEFAULT '{}'
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username_kind
			ON accounts (username, kind);
		CREATE INDEX IF NOT EXISTS idx_accounts_owner
			ON accounts (owner_username);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure directory schema: %w", err)
	}
	return nil
}

const accountColumns = `unique_id, username, kind, display_name, email, owner_username, resource_name, attributes`

// GetByUsername retrieves an account by username and kind.
func (s *Store) GetByUsername(ctx context.Context, username string, kind Kind) (Account, error) {
	if username == "" {
		return Account{}, ErrNotFound
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE username = ? AND kind = ?
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, username, string(kind)))
}

// GetByUniqueID retrieves an account by its composite node:local identifier.
func (s *Store) GetByUniqueID(ctx context.Context, uniqueID string) (Account, error) {
	if uniqueID == "" {
		return Account{}, ErrNotFound
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE unique_id = ?
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uniqueID))
}

// Search returns accounts whose username or display name contains the query,
// case-insensitively, ordered by username.
func (s *Store) Search(ctx context.Context, q string) ([]Account, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE lower(username) LIKE ? OR lower(display_name) LIKE ?
		ORDER BY username ASC, unique_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// ResourcesForOwner returns the resource accounts delegated to a user,
// ordered by resource name.
func (s *Store) ResourcesForOwner(ctx context.Context, ownerUsername string) ([]Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE kind = 'resource' AND owner_username = ?
		ORDER BY resource_name ASC, unique_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerUsername)
	if err != nil {
		return nil, fmt.Errorf("list resources for %s: %w", ownerUsername, err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// Upsert inserts or replaces an account record keyed by unique ID.
func (s *Store) Upsert(ctx context.Context, account Account) error {
	if account.UniqueID == "" {
		return fmt.Errorf("directory: account unique ID is required")
	}
	if account.Username == "" {
		return fmt.Errorf("directory: account username is required")
	}
	attrs, err := encodeAttributes(account.Attributes)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unique_id) DO UPDATE SET
			username = excluded.username,
			kind = excluded.kind,
			display_name = excluded.display_name,
			email = excluded.email,
			owner_username = excluded.owner_username,
			resource_name = excluded.resource_name,
			attributes = excluded.attributes
	`
	_, err = s.db.ExecContext(ctx, query,
		account.UniqueID,
		account.Username,
		string(account.Kind),
		account.DisplayName,
		account.Email,
		account.OwnerUsername,
		account.ResourceName,
		attrs,
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", account.UniqueID, err)
	}
	return nil
}

// SetAttribute updates a single attribute on a stored account, used to cache
// remote-resolved values such as the calendar GUID.
func (s *Store) SetAttribute(ctx context.Context, uniqueID, key, value string) error {
	account, err := s.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return err
	}
	if account.Attributes == nil {
		account.Attributes = make(map[string]string)
	}
	account.Attributes[key] = value
	return s.Upsert(ctx, account)
}

func (s *Store) scanOne(row *sql.Row) (Account, error) {
	var account Account
	var kind, attrs string
	err := row.Scan(
		&account.UniqueID,
		&account.Username,
		&kind,
		&account.DisplayName,
		&account.Email,
		&account.OwnerUsername,
		&account.ResourceName,
		&attrs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	account.Kind = Kind(kind)
	if account.Attributes, err = decodeAttributes(attrs); err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *Store) scanAll(rows *sql.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		var account Account
		var kind, attrs string
		err := rows.Scan(
			&account.UniqueID,
			&account.Username,
			&kind,
			&account.DisplayName,
			&account.Email,
			&account.OwnerUsername,
			&account.ResourceName,
			&attrs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.Kind = Kind(kind)
		if account.Attributes, err = decodeAttributes(attrs); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode account attributes: %w", err)
	}
	return string(encoded), nil
}

func decodeAttributes(raw string) (map[string]string, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	attrs := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("decode account attributes: %w", err)
	}
	return attrs, nil
}
