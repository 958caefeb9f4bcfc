package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS catalog_documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	doc        JSONB       NOT NULL,
	position   BIGSERIAL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// Postgres keeps each item as a JSONB document keyed by collection and id.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with the given database/sql driver ("pgx" or
// "postgres") and ensures the schema exists.
func OpenPostgres(ctx context.Context, driver, dsn string) (*Postgres, error) {
	if driver == "" {
		driver = "pgx"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable(fmt.Errorf("connecting to postgres: %w", err))
	}
	p := NewPostgres(db)
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an open database.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Migrate creates the documents table if needed.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}
	return nil
}

// Truncate deletes every document in every collection.
func (p *Postgres) Truncate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM catalog_documents`)
	return err
}

// Close implements Closer.
func (p *Postgres) Close() error { return p.db.Close() }

func scanDocument(scan func(...any) error) (catalog.Item, error) {
	var (
		it  catalog.Item
		raw []byte
	)
	if err := scan(&raw); err != nil {
		return it, err
	}
	if err := json.Unmarshal(raw, &it); err != nil {
		return it, fmt.Errorf("decoding document: %w", err)
	}
	return it, nil
}

// List implements Store.
func (p *Postgres) List(ctx context.Context, c catalog.Collection) ([]catalog.Item, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT doc FROM catalog_documents WHERE collection=$1 ORDER BY position`, string(c))
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	items := []catalog.Item{}
	for rows.Next() {
		it, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, unavailable(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return items, nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, c catalog.Collection, id string) (catalog.Item, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT doc FROM catalog_documents WHERE collection=$1 AND id=$2`, string(c), id)
	it, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, ErrNotFound
	}
	if err != nil {
		return catalog.Item{}, unavailable(err)
	}
	return it, nil
}

// Set implements Store. A merge is a jsonb concatenation, so only the
// patch fields change.
func (p *Postgres) Set(ctx context.Context, c catalog.Collection, id string, patch catalog.Patch, merge bool) error {
	if !merge {
		it, _ := applySet(nil, c, id, patch, false)
		doc, err := json.Marshal(it)
		if err != nil {
			return err
		}
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO catalog_documents (collection, id, doc) VALUES ($1,$2,$3::jsonb)
			ON CONFLICT (collection, id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=now()`,
			string(c), id, string(doc))
		return unavailable(err)
	}

	fields, err := json.Marshal(patch.Fields())
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE catalog_documents SET doc = doc || $3::jsonb, updated_at=now()
		WHERE collection=$1 AND id=$2`,
		string(c), id, string(fields))
	if err != nil {
		return unavailable(err)
	}
	return requireRow(res)
}

// Create implements Store.
func (p *Postgres) Create(ctx context.Context, c catalog.Collection, it catalog.Item) (string, error) {
	id := it.ID
	if id == "" {
		id = uuid.NewString()
	}
	doc, err := json.Marshal(prepareCreate(c, it, id))
	if err != nil {
		return "", err
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO catalog_documents (collection, id, doc) VALUES ($1,$2,$3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING`,
		string(c), id, string(doc))
	if err != nil {
		return "", unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrConflict
	}
	return id, nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, c catalog.Collection, id string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM catalog_documents WHERE collection=$1 AND id=$2`, string(c), id)
	if err != nil {
		return unavailable(err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
