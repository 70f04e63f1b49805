package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"bidwatch-engine/internal/domain"
)

// SQLiteStore persists contracts in a local SQLite file. The natural-key
// unique index carries the upsert conflict resolution, so concurrent runs
// stay safe without a global lock.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1) // sqlite wants a single writer
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS contracts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  region_code TEXT NOT NULL,
  reference_number TEXT NOT NULL,
  title TEXT NOT NULL,
  due_date TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL DEFAULT '',
  issuing_body TEXT NOT NULL DEFAULT '',
  source_id TEXT NOT NULL DEFAULT '',
  extra TEXT NOT NULL DEFAULT '{}',
  fetched_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_contracts_region_ref
ON contracts(region_code, reference_number);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_contracts_due_date
ON contracts(due_date);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertContracts(ctx context.Context, cs []domain.Contract) (UpsertResult, error) {
	var res UpsertResult
	if len(cs) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, c := range cs {
		var exists int
		err := tx.QueryRowContext(ctx, `
SELECT 1 FROM contracts WHERE region_code = ? AND reference_number = ? LIMIT 1;`,
			c.RegionCode, c.ReferenceNumber,
		).Scan(&exists)
		if err != nil && err != sql.ErrNoRows {
			return res, fmt.Errorf("upsert precheck: %w", err)
		}

		extraB, _ := json.Marshal(c.Extra)
		if c.Extra == nil {
			extraB = []byte("{}")
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO contracts (region_code, reference_number, title, due_date, link, issuing_body, source_id, extra, fetched_at, last_seen_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(region_code, reference_number) DO UPDATE SET
  title = excluded.title,
  due_date = excluded.due_date,
  link = excluded.link,
  issuing_body = excluded.issuing_body,
  last_seen_at = excluded.last_seen_at;`,
			c.RegionCode,
			c.ReferenceNumber,
			c.Title,
			c.DueDate,
			c.Link,
			c.IssuingBody,
			c.SourceID,
			string(extraB),
			c.FetchedAt.UTC().Format(time.RFC3339),
			now,
		)
		if err != nil {
			return res, fmt.Errorf("upsert %s: %w", c.Key(), err)
		}

		if exists == 1 {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
