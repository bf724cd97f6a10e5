// Package migrations holds the Go migrations applied by goose on top of the embedded SQL files.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upValueToBlob, downValueToText)
}

// upValueToBlob moves kv_store.value from TEXT to BLOB so compressed payloads are stored untouched.
func upValueToBlob(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE kv_store ADD COLUMN value_blob BLOB`)
	if err != nil {
		return fmt.Errorf("adding value_blob column : %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT item_key, value FROM kv_store")
	if err != nil {
		return fmt.Errorf("getting all items: %w", err)
	}

	items := make(map[string][]byte)
	for rows.Next() {
		var key string
		var text sql.NullString
		if err := rows.Scan(&key, &text); err != nil {
			rows.Close()
			return fmt.Errorf("scanning item: %w", err)
		}
		items[key] = []byte(text.String)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating items: %w", err)
	}
	rows.Close()

	for key, value := range items {
		_, err = tx.ExecContext(ctx, "UPDATE kv_store SET value_blob = ? WHERE item_key = ?", value, key)
		if err != nil {
			return fmt.Errorf("updating item %s : %w", key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "ALTER TABLE kv_store DROP COLUMN value"); err != nil {
		return fmt.Errorf("dropping text value column : %w", err)
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE kv_store RENAME COLUMN value_blob TO value"); err != nil {
		return fmt.Errorf("renaming value_blob column: %w", err)
	}
	return nil
}

// downValueToText restores the TEXT column. Binary payloads are carried over byte for byte.
func downValueToText(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE kv_store ADD COLUMN value_text TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("adding value_text column for rollback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE kv_store SET value_text = CAST(value AS TEXT)`); err != nil {
		return fmt.Errorf("copying values for rollback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE kv_store DROP COLUMN value`); err != nil {
		return fmt.Errorf("dropping blob value column for rollback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE kv_store RENAME COLUMN value_text TO value`); err != nil {
		return fmt.Errorf("renaming value_text column for rollback: %w", err)
	}
	return nil
}
