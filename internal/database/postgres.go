// Package database implements core.Store on PostgreSQL (pgx) and in memory.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leadbook/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Queries runs buyer statements against a pool or a transaction.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

var buyerColumns = []string{
	"id", "full_name", "email", "phone", "city", "property_type", "bhk", "purpose",
	"budget_min", "budget_max", "timeline", "source", "status", "notes", "tags",
	"owner_id", "created_at", "updated_at",
}

var historyColumns = []string{"id", "buyer_id", "changed_by", "diff", "created_at"}

const selectBuyers = `SELECT id, full_name, email, phone, city, property_type, bhk, purpose,
       budget_min, budget_max, timeline, source, status, notes, tags,
       owner_id, created_at, updated_at
  FROM buyers`

func scanBuyer(row pgx.Row) (core.Buyer, error) {
	var (
		id                          pgtype.UUID
		email, bhk, notes           pgtype.Text
		budgetMin, budgetMax        pgtype.Int8
		createdAt, updatedAt        pgtype.Timestamptz
		city, propertyType, purpose string
		timeline, source, status    string
		b                           core.Buyer
	)
	err := row.Scan(
		&id, &b.FullName, &email, &b.Phone, &city, &propertyType, &bhk, &purpose,
		&budgetMin, &budgetMax, &timeline, &source, &status, &notes, &b.Tags,
		&b.OwnerID, &createdAt, &updatedAt,
	)
	if err != nil {
		return core.Buyer{}, err
	}

	b.ID = PgUUIDToString(id)
	b.Email = PgTextToString(email)
	b.City = core.City(city)
	b.PropertyType = core.PropertyType(propertyType)
	b.BHK = core.BHK(PgTextToString(bhk))
	b.Purpose = core.Purpose(purpose)
	b.BudgetMin = PgInt8ToPtr(budgetMin)
	b.BudgetMax = PgInt8ToPtr(budgetMax)
	b.Timeline = core.Timeline(timeline)
	b.Source = core.Source(source)
	b.Status = core.Status(status)
	b.Notes = PgTextToString(notes)
	b.CreatedAt = PgTimestamptzToTime(createdAt)
	b.UpdatedAt = PgTimestamptzToTime(updatedAt)
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return b, nil
}

func buyerValues(b core.Buyer) []any {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		ToPgUUID(b.ID), b.FullName, ToPgText(b.Email), b.Phone, string(b.City),
		string(b.PropertyType), ToPgText(string(b.BHK)), string(b.Purpose),
		ToPgInt8(b.BudgetMin), ToPgInt8(b.BudgetMax), string(b.Timeline),
		string(b.Source), string(b.Status), ToPgText(b.Notes), tags,
		b.OwnerID, ToPgTimestamptz(b.CreatedAt), ToPgTimestamptz(b.UpdatedAt),
	}
}

func historyValues(h core.History) ([]any, error) {
	diff, err := json.Marshal(h.Diff)
	if err != nil {
		return nil, fmt.Errorf("encode diff: %w", err)
	}
	return []any{ToPgUUID(h.ID), ToPgUUID(h.BuyerID), h.ChangedBy, diff, ToPgTimestamptz(h.CreatedAt)}, nil
}

// CopyBuyers bulk-loads buyers with COPY.
func (q *Queries) CopyBuyers(ctx context.Context, buyers []core.Buyer) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"buyers"}, buyerColumns,
		pgx.CopyFromSlice(len(buyers), func(i int) ([]any, error) {
			return buyerValues(buyers[i]), nil
		}))
}

// CopyHistory bulk-loads history entries with COPY.
func (q *Queries) CopyHistory(ctx context.Context, history []core.History) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"buyer_history"}, historyColumns,
		pgx.CopyFromSlice(len(history), func(i int) ([]any, error) {
			return historyValues(history[i])
		}))
}

// InsertHistory writes a single history entry.
func (q *Queries) InsertHistory(ctx context.Context, h core.History) error {
	vals, err := historyValues(h)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx,
		`INSERT INTO buyer_history (id, buyer_id, changed_by, diff, created_at) VALUES ($1, $2, $3, $4, $5)`,
		vals...)
	return err
}

// GetBuyer loads one buyer. forUpdate locks the row until the surrounding
// transaction ends.
func (q *Queries) GetBuyer(ctx context.Context, id string, forUpdate bool) (core.Buyer, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return core.Buyer{}, core.ErrNotFound
	}
	query := selectBuyers + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBuyer(q.db.QueryRow(ctx, query, pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Buyer{}, core.ErrNotFound
	}
	return b, err
}

// UpdateBuyer overwrites every mutable column of b.
func (q *Queries) UpdateBuyer(ctx context.Context, b core.Buyer) error {
	_, err := q.db.Exec(ctx, `UPDATE buyers SET
       full_name = $2, email = $3, phone = $4, city = $5, property_type = $6, bhk = $7,
       purpose = $8, budget_min = $9, budget_max = $10, timeline = $11, source = $12,
       status = $13, notes = $14, tags = $15, updated_at = $16
 WHERE id = $1`,
		ToPgUUID(b.ID), b.FullName, ToPgText(b.Email), b.Phone, string(b.City),
		string(b.PropertyType), ToPgText(string(b.BHK)), string(b.Purpose),
		ToPgInt8(b.BudgetMin), ToPgInt8(b.BudgetMax), string(b.Timeline),
		string(b.Source), string(b.Status), ToPgText(b.Notes), b.Tags,
		ToPgTimestamptz(b.UpdatedAt),
	)
	return err
}

// DeleteBuyer removes a buyer. History rows go with it (ON DELETE CASCADE).
func (q *Queries) DeleteBuyer(ctx context.Context, id string) error {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return core.ErrNotFound
	}
	tag, err := q.db.Exec(ctx, `DELETE FROM buyers WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func filterWhere(f core.ListFilter) *WhereBuilder {
	wb := NewWhereBuilder()
	wb.Add("city", string(f.City))
	wb.Add("property_type", string(f.PropertyType))
	wb.Add("status", string(f.Status))
	wb.Add("timeline", string(f.Timeline))
	wb.AddSearch(f.Search, []string{"full_name", "email"}, []string{"phone"})
	return wb
}

// ListBuyers returns the filtered page, newest update first.
func (q *Queries) ListBuyers(ctx context.Context, f core.ListFilter) ([]core.Buyer, error) {
	wb := filterWhere(f)
	where, args := wb.Build()

	query := selectBuyers + where + ` ORDER BY updated_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
		args = append(args, f.Limit, f.Offset)
	}
	return q.collectBuyers(ctx, query, args...)
}

// CountBuyers counts the rows matched by f, ignoring paging.
func (q *Queries) CountBuyers(ctx context.Context, f core.ListFilter) (int64, error) {
	where, args := filterWhere(f).Build()
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM buyers`+where, args...).Scan(&n)
	return n, err
}

// AllBuyers returns every buyer, newest update first.
func (q *Queries) AllBuyers(ctx context.Context) ([]core.Buyer, error) {
	return q.collectBuyers(ctx, selectBuyers+` ORDER BY updated_at DESC, id`)
}

func (q *Queries) collectBuyers(ctx context.Context, query string, args ...any) ([]core.Buyer, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Buyer, error) {
		return scanBuyer(row)
	})
}

// ListHistory returns the newest entries for a buyer.
func (q *Queries) ListHistory(ctx context.Context, buyerID string, limit int) ([]core.History, error) {
	pgID := ToPgUUID(buyerID)
	if !pgID.Valid {
		return []core.History{}, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, buyer_id, changed_by, diff, created_at
  FROM buyer_history
 WHERE buyer_id = $1
 ORDER BY created_at DESC, id
 LIMIT $2`, pgID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.History, error) {
		var (
			id, buyer pgtype.UUID
			diff      []byte
			at        pgtype.Timestamptz
			h         core.History
		)
		if err := row.Scan(&id, &buyer, &h.ChangedBy, &diff, &at); err != nil {
			return core.History{}, err
		}
		if err := json.Unmarshal(diff, &h.Diff); err != nil {
			return core.History{}, fmt.Errorf("decode diff: %w", err)
		}
		h.ID = PgUUIDToString(id)
		h.BuyerID = PgUUIDToString(buyer)
		h.CreatedAt = PgTimestamptzToTime(at)
		return h, nil
	})
}

// PostgresStore is the production core.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    *Queries
}

// NewPostgresStore wraps pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: New(pool)}
}

var _ core.Store = (*PostgresStore)(nil)

func (s *PostgresStore) CreateBuyers(ctx context.Context, buyers []core.Buyer, history []core.History) ([]core.Buyer, error) {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		qtx := s.q.WithTx(tx)
		if _, err := qtx.CopyBuyers(ctx, buyers); err != nil {
			return fmt.Errorf("copy buyers: %w", err)
		}
		if _, err := qtx.CopyHistory(ctx, history); err != nil {
			return fmt.Errorf("copy history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buyers, nil
}

func (s *PostgresStore) GetBuyer(ctx context.Context, id string) (core.Buyer, error) {
	return s.q.GetBuyer(ctx, id, false)
}

func (s *PostgresStore) UpdateBuyer(ctx context.Context, id string, fn core.UpdateFunc) (core.Buyer, error) {
	var result core.Buyer
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		qtx := s.q.WithTx(tx)
		current, err := qtx.GetBuyer(ctx, id, true)
		if err != nil {
			return err
		}

		next, h, err := fn(current)
		if err != nil {
			return err
		}
		if h == nil {
			result = current
			return nil
		}

		if err := qtx.UpdateBuyer(ctx, next); err != nil {
			return fmt.Errorf("update row: %w", err)
		}
		if err := qtx.InsertHistory(ctx, *h); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		result = next
		return nil
	})
	if err != nil {
		return core.Buyer{}, err
	}
	return result, nil
}

func (s *PostgresStore) DeleteBuyer(ctx context.Context, id string) error {
	return s.q.DeleteBuyer(ctx, id)
}

func (s *PostgresStore) ListBuyers(ctx context.Context, f core.ListFilter) ([]core.Buyer, error) {
	return s.q.ListBuyers(ctx, f)
}

func (s *PostgresStore) CountBuyers(ctx context.Context, f core.ListFilter) (int64, error) {
	return s.q.CountBuyers(ctx, f)
}

func (s *PostgresStore) AllBuyers(ctx context.Context) ([]core.Buyer, error) {
	return s.q.AllBuyers(ctx)
}

func (s *PostgresStore) ListHistory(ctx context.Context, buyerID string, limit int) ([]core.History, error) {
	return s.q.ListHistory(ctx, buyerID, limit)
}

// Ping checks connectivity for health checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
