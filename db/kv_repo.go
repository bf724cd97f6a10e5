package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tfkr-ae/darelteb/domain"
)

var _ domain.KeyValueRepository = (*Repository)(nil)

// GetItem implements the domain.KeyValueRepository interface.
// It returns found == false when there is no row for the key.
func (repo *Repository) GetItem(key string) ([]byte, bool, error) {
	var value []byte
	query := `SELECT value FROM kv_store WHERE item_key = ?`

	err := repo.dbConn.Get(&value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting item %s: %w", key, err)
	}

	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// SetItem implements the domain.KeyValueRepository interface.
// The row for the key is replaced as a whole.
func (repo *Repository) SetItem(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	query := `INSERT INTO kv_store(item_key, value, updated_at)
		      VALUES (?, ?, ?)
		      ON CONFLICT(item_key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`

	_, err := repo.dbConn.Exec(query, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("setting item %s: %w", key, err)
	}

	return nil
}

// RemoveItem implements the domain.KeyValueRepository interface.
// Deleting a missing key affects no rows and is not reported as an error.
func (repo *Repository) RemoveItem(key string) error {
	query := `DELETE FROM kv_store WHERE item_key = ?`

	_, err := repo.dbConn.Exec(query, key)
	if err != nil {
		return fmt.Errorf("removing item %s: %w", key, err)
	}

	return nil
}

// Keys implements the domain.KeyValueRepository interface.
func (repo *Repository) Keys() ([]string, error) {
	keys := []string{}
	query := `SELECT item_key FROM kv_store ORDER BY item_key ASC`

	err := repo.dbConn.Select(&keys, query)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	return keys, nil
}
