package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"bidwatch-engine/internal/domain"
)

// PostgresStore is the shared-deployment alternative to the SQLite file.
type PostgresStore struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS contracts (
			id               SERIAL PRIMARY KEY,
			region_code      VARCHAR(2)  NOT NULL,
			reference_number TEXT        NOT NULL,
			title            TEXT        NOT NULL,
			due_date         TEXT        NOT NULL DEFAULT '',
			link             TEXT        NOT NULL DEFAULT '',
			issuing_body     TEXT        NOT NULL DEFAULT '',
			source_id        TEXT        NOT NULL DEFAULT '',
			extra            JSONB       NOT NULL DEFAULT '{}',
			fetched_at       TIMESTAMPTZ NOT NULL,
			last_seen_at     TIMESTAMPTZ NOT NULL,
			UNIQUE (region_code, reference_number)
		);

		CREATE INDEX IF NOT EXISTS idx_contracts_due_date ON contracts(due_date);
		CREATE INDEX IF NOT EXISTS idx_contracts_source   ON contracts(source_id);
	`)
	return err
}

func (s *PostgresStore) UpsertContracts(ctx context.Context, cs []domain.Contract) (UpsertResult, error) {
	var res UpsertResult
	if len(cs) == 0 {
		return res, nil
	}

	now := time.Now().UTC()

	for _, c := range cs {
		extraB, _ := json.Marshal(c.Extra)
		if c.Extra == nil {
			extraB = []byte("{}")
		}

		// xmax = 0 only on freshly inserted rows; anything else was an
		// update taken by the conflict branch.
		var inserted bool
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO contracts (region_code, reference_number, title, due_date, link, issuing_body, source_id, extra, fetched_at, last_seen_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (region_code, reference_number) DO UPDATE SET
				title        = EXCLUDED.title,
				due_date     = EXCLUDED.due_date,
				link         = EXCLUDED.link,
				issuing_body = EXCLUDED.issuing_body,
				last_seen_at = EXCLUDED.last_seen_at
			RETURNING (xmax = 0);`,
			c.RegionCode,
			c.ReferenceNumber,
			c.Title,
			c.DueDate,
			c.Link,
			c.IssuingBody,
			c.SourceID,
			string(extraB),
			c.FetchedAt.UTC(),
			now,
		).Scan(&inserted)
		if err != nil {
			return res, fmt.Errorf("upsert %s: %w", c.Key(), err)
		}

		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	return res, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
