package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
)

// ErrDocumentNotFound is returned when no document has the requested id.
var ErrDocumentNotFound = errors.New("document not found")

// Filter is an equality condition on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// DocumentStore keeps JSON documents in Postgres, addressed by collection and id.
type DocumentStore struct {
	db *sqlx.DB
}

// NewDocumentStore creates a DocumentStore on an open connection pool.
func NewDocumentStore(db *sqlx.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Create stores doc under a freshly generated id and returns the id.
// The id is also written into the document's "id" field.
func (s *DocumentStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()

	data, err := withID(doc, id)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}

	const query = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
	`
	_, err = s.db.ExecContext(ctx, query, collection, id, string(data))
	logQuery(ctx, query, []any{collection, id}, id, err)
	if err != nil {
		return "", err
	}

	return id, nil
}

// Get decodes the document with the given id into dst.
func (s *DocumentStore) Get(ctx context.Context, collection, id string, dst any) error {
	const query = `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	var data []byte
	err := s.db.GetContext(ctx, &data, query, collection, id)
	logQuery(ctx, query, []any{collection, id}, len(data), err)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dst)
}

// Query streams the documents of collection matching filter. A limit of zero
// means no limit. The caller must Close the iterator.
func (s *DocumentStore) Query(ctx context.Context, collection string, filter Filter, limit int) (*DocumentIterator, error) {
	cond, err := json.Marshal(map[string]any{filter.Field: filter.Value})
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	query := `
		SELECT data
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
	`
	args := []any{collection, string(cond)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	logQuery(ctx, query, []any{collection, filter.Field, limit}, nil, err)
	if err != nil {
		return nil, err
	}

	return &DocumentIterator{rows: rows}, nil
}

// Update merges fields into the top level of the stored document.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s patch: %w", collection, err)
	}

	const query = `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`
	res, err := s.db.ExecContext(ctx, query, collection, id, string(patch))

	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(ctx, query, []any{collection, id}, rowsAffected, err)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	const query = `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`
	res, err := s.db.ExecContext(ctx, query, collection, id)

	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(ctx, query, []any{collection, id}, rowsAffected, err)

	return err
}

// Ping checks that the database is reachable.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DocumentIterator walks over query results one document at a time.
type DocumentIterator struct {
	rows *sqlx.Rows
}

// Next advances to the next document.
func (it *DocumentIterator) Next() bool {
	return it.rows.Next()
}

// Decode unmarshals the current document into dst.
func (it *DocumentIterator) Decode(dst any) error {
	var data []byte
	if err := it.rows.Scan(&data); err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Err returns the error, if any, encountered during iteration.
func (it *DocumentIterator) Err() error {
	return it.rows.Err()
}

// Close releases the underlying rows.
func (it *DocumentIterator) Close() error {
	return it.rows.Close()
}

func withID(doc any, id string) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}

	encodedID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["id"] = encodedID

	return json.Marshal(fields)
}

func logQuery(ctx context.Context, query string, args []any, result any, err error) {
	logger.FromContext(ctx).Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}
