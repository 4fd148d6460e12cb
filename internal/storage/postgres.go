package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/deusflow/signalfeed/internal/content"
)

const recordsTable = "content_records"

const schema = `
CREATE TABLE IF NOT EXISTS content_records (
	id UUID PRIMARY KEY,
	kind VARCHAR(16) NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL,
	source_name VARCHAR(200) NOT NULL DEFAULT '',
	vertical VARCHAR(64) NOT NULL,
	priority VARCHAR(8) NOT NULL DEFAULT 'MEDIUM',
	status VARCHAR(16) NOT NULL DEFAULT 'DRAFT',
	importance_score INTEGER NOT NULL DEFAULT 0 CHECK (importance_score BETWEEN 0 AND 100),
	why_it_matters TEXT NOT NULL DEFAULT '',
	talk_track TEXT NOT NULL DEFAULT '',
	metric_value VARCHAR(64) NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_selected_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ,
	UNIQUE (kind, source_url)
);

CREATE INDEX IF NOT EXISTS idx_content_records_source_created ON content_records(kind, source_name, created_at);
CREATE INDEX IF NOT EXISTS idx_content_records_status ON content_records(kind, status);
CREATE INDEX IF NOT EXISTS idx_content_records_published ON content_records(published_at);
CREATE INDEX IF NOT EXISTS idx_content_records_expires ON content_records(expires_at) WHERE expires_at IS NOT NULL;
`

var recordColumns = []string{
	"id", "kind", "title", "summary", "source_url", "source_name", "vertical", "priority", "status",
	"importance_score", "why_it_matters", "talk_track", "metric_value",
	"published_at", "created_at", "updated_at", "last_selected_at", "expires_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists records into Postgres.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens and pings the database. It does not migrate.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wires an existing sql.DB.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// Migrate creates the schema if it does not exist.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports a 23505 from lib/pq.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (ps *PostgresStore) Create(ctx context.Context, r *content.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := ps.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = content.StatusDraft
	}

	query, args, err := insertQuery(r).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.SourceURL)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func insertQuery(r *content.Record) sq.InsertBuilder {
	return psql.Insert(recordsTable).Columns(recordColumns...).Values(
		r.ID, string(r.Kind), r.Title, r.Summary, r.SourceURL, r.SourceName, string(r.Vertical),
		string(r.Priority), string(r.Status), r.ImportanceScore, r.WhyItMatters, r.TalkTrack, r.MetricValue,
		r.PublishedAt, r.CreatedAt, r.UpdatedAt, nullTime(r.LastSelectedAt), nullTime(r.ExpiresAt),
	)
}

func (ps *PostgresStore) Update(ctx context.Context, r *content.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.UpdatedAt = ps.now().UTC()

	query, args, err := updateQuery(r).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := ps.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.SourceURL)
		}
		return fmt.Errorf("update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID)
	}
	return nil
}

func updateQuery(r *content.Record) sq.UpdateBuilder {
	return psql.Update(recordsTable).SetMap(map[string]interface{}{
		"kind":             string(r.Kind),
		"title":            r.Title,
		"summary":          r.Summary,
		"source_url":       r.SourceURL,
		"source_name":      r.SourceName,
		"vertical":         string(r.Vertical),
		"priority":         string(r.Priority),
		"status":           string(r.Status),
		"importance_score": r.ImportanceScore,
		"why_it_matters":   r.WhyItMatters,
		"talk_track":       r.TalkTrack,
		"metric_value":     r.MetricValue,
		"published_at":     r.PublishedAt,
		"updated_at":       r.UpdatedAt,
		"last_selected_at": nullTime(r.LastSelectedAt),
		"expires_at":       nullTime(r.ExpiresAt),
	}).Where(sq.Eq{"id": r.ID})
}

func (ps *PostgresStore) Get(ctx context.Context, id string) (*content.Record, error) {
	return ps.one(ctx, psql.Select(recordColumns...).From(recordsTable).Where(sq.Eq{"id": id}))
}

func (ps *PostgresStore) FindByURL(ctx context.Context, kind content.Kind, url string) (*content.Record, error) {
	return ps.one(ctx, psql.Select(recordColumns...).From(recordsTable).
		Where(sq.Eq{"kind": string(kind), "source_url": url}))
}

func (ps *PostgresStore) FindByTitleSource(ctx context.Context, kind content.Kind, title, source string) (*content.Record, error) {
	return ps.one(ctx, psql.Select(recordColumns...).From(recordsTable).
		Where(sq.Eq{"kind": string(kind), "title": title, "source_name": source}).
		OrderBy("created_at ASC").Limit(1))
}

func (ps *PostgresStore) one(ctx context.Context, b sq.SelectBuilder) (*content.Record, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	r, err := scanRecord(ps.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	return r, nil
}

func (ps *PostgresStore) List(ctx context.Context, q Query) ([]content.Record, error) {
	query, args, err := listQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	var out []content.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, *r)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return out, nil
}

func listQuery(q Query) sq.SelectBuilder {
	b := psql.Select(recordColumns...).From(recordsTable)
	if q.Kind != "" {
		b = b.Where(sq.Eq{"kind": string(q.Kind)})
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		b = b.Where("status = ANY(?)", pq.StringArray(statuses))
	}
	if q.SourceName != "" {
		b = b.Where(sq.Eq{"source_name": q.SourceName})
	}
	if q.Vertical != "" {
		b = b.Where(sq.Eq{"vertical": string(q.Vertical)})
	}
	if !q.CreatedAfter.IsZero() {
		b = b.Where(sq.Gt{"created_at": q.CreatedAfter})
	}
	if !q.PublishedAfter.IsZero() {
		b = b.Where(sq.Gt{"published_at": q.PublishedAfter})
	}
	if !q.ExpiresBefore.IsZero() {
		b = b.Where(sq.Lt{"expires_at": q.ExpiresBefore})
	}

	switch q.Order {
	case OrderPriority:
		b = b.OrderBy("CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END", "published_at DESC")
	case OrderCreated:
		b = b.OrderBy("created_at ASC")
	default:
		b = b.OrderBy("published_at DESC")
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b
}

func (ps *PostgresStore) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete(recordsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := ps.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*content.Record, error) {
	var (
		r                     content.Record
		kind, vertical        string
		priority, status      string
		lastSelected, expires sql.NullTime
	)
	err := row.Scan(&r.ID, &kind, &r.Title, &r.Summary, &r.SourceURL, &r.SourceName, &vertical,
		&priority, &status, &r.ImportanceScore, &r.WhyItMatters, &r.TalkTrack, &r.MetricValue,
		&r.PublishedAt, &r.CreatedAt, &r.UpdatedAt, &lastSelected, &expires)
	if err != nil {
		return nil, err
	}
	r.Kind = content.Kind(kind)
	r.Vertical = content.Vertical(vertical)
	r.Priority = content.Priority(priority)
	r.Status = content.Status(status)
	if lastSelected.Valid {
		t := lastSelected.Time
		r.LastSelectedAt = &t
	}
	if expires.Valid {
		t := expires.Time
		r.ExpiresAt = &t
	}
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
