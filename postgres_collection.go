package fixtures

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresCollection stores documents as jsonb rows keyed by id.
type PostgresCollection struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresCollection(pool *pgxpool.Pool, table string) (*PostgresCollection, error) {
	if !tableName.MatchString(table) {
		return nil, invalidArgument("bad table name %q", table)
	}
	return &PostgresCollection{pool: pool, table: table}, nil
}

func (c *PostgresCollection) Name() string {
	return c.table
}

func (c *PostgresCollection) ident() string {
	return pgx.Identifier{c.table}.Sanitize()
}

// EnsureTable creates the backing table when it does not exist yet.
func (c *PostgresCollection) EnsureTable(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %v (id text PRIMARY KEY, doc jsonb NOT NULL)", c.ident()))
	return err
}

func (c *PostgresCollection) Insert(ctx context.Context, doc Document) error {
	body, err := jsonb(doc)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, fmt.Sprintf("INSERT INTO %v (id, doc) VALUES ($1, $2)", c.ident()), doc.ID, body)
	return err
}

func (c *PostgresCollection) InsertMany(ctx context.Context, docs []Document) error {
	batch := &pgx.Batch{}
	query := fmt.Sprintf("INSERT INTO %v (id, doc) VALUES ($1, $2)", c.ident())
	for _, doc := range docs {
		body, err := jsonb(doc)
		if err != nil {
			return err
		}
		batch.Queue(query, doc.ID, body)
	}
	results := c.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (c *PostgresCollection) RemoveWhere(ctx context.Context, p Predicate) (int64, error) {
	tag, err := c.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %v WHERE doc->>$1::text ~ $2::text", c.ident()), p.Field, p.Regexp())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *PostgresCollection) Count(ctx context.Context, p Predicate) (int64, error) {
	var n int64
	err := c.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %v WHERE doc->>$1::text ~ $2::text", c.ident()), p.Field, p.Regexp()).Scan(&n)
	return n, err
}

func (c *PostgresCollection) Find(ctx context.Context, p Predicate) ([]Document, error) {
	rows, err := c.pool.Query(ctx, fmt.Sprintf("SELECT doc FROM %v WHERE doc->>$1::text ~ $2::text", c.ident()), p.Field, p.Regexp())
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	docs := []Document{}
	for rows.Next() {
		var body pgtype.JSONB
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		fields := map[string]string{}
		if err := body.AssignTo(&fields); err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: fields[FieldID], Name: fields[FieldName]})
	}
	return docs, rows.Err()
}

func jsonb(doc Document) (*pgtype.JSONB, error) {
	body := &pgtype.JSONB{}
	if err := body.Set(map[string]string{FieldID: doc.ID, FieldName: doc.Name}); err != nil {
		return nil, err
	}
	return body, nil
}
