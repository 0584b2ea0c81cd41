package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Archive keeps every written document in Postgres, one row per write. A
// regeneration shares the run ID of the full run it updated.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS preview_documents (
//	  id         BIGSERIAL PRIMARY KEY,
//	  run_id     TEXT NOT NULL,
//	  circuit    TEXT,
//	  season     TEXT,
//	  race_date  TEXT,
//	  document   JSONB,
//	  created_at TIMESTAMPTZ
//	);
type Archive struct {
	pool *pgxpool.Pool
}

// OpenArchive connects to dbURL, typically DATABASE_URL.
func OpenArchive(ctx context.Context, dbURL string) (*Archive, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Archive{pool: pool}, nil
}

// EnsureSchema creates the documents table if needed.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS preview_documents (
			id         BIGSERIAL PRIMARY KEY,
			run_id     TEXT NOT NULL,
			circuit    TEXT,
			season     TEXT,
			race_date  TEXT,
			document   JSONB,
			created_at TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("failed to create preview_documents: %w", err)
	}
	return nil
}

// SaveRun appends doc as a new row.
func (a *Archive) SaveRun(ctx context.Context, doc *Document) error {
	meta, err := doc.Metadata()
	if err != nil {
		return err
	}
	if meta.RunID == "" {
		return errors.New("document has no run ID")
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		INSERT INTO preview_documents (run_id, circuit, season, race_date, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := a.pool.Exec(ctx, query, meta.RunID, meta.Circuit, meta.Season, meta.Date, data, time.Now()); err != nil {
		return fmt.Errorf("failed to save run %s: %w", meta.RunID, err)
	}
	return nil
}

// LatestRun returns the newest archived document for a season. An empty
// circuit matches any circuit.
func (a *Archive) LatestRun(ctx context.Context, circuit, season string) (*Document, error) {
	var data []byte
	err := a.pool.QueryRow(ctx, `
		SELECT document FROM preview_documents
		WHERE ($1 = '' OR circuit = $1) AND season = $2
		ORDER BY id DESC
		LIMIT 1`, circuit, season).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no archived run for %s %s", ErrNotFound, circuit, season)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	root, err := parseObject(json.RawMessage(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse archived run: %w", err)
	}
	return &Document{root: root}, nil
}

func (a *Archive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
