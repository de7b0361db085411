package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/orderdesk/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Filter names the list predicates exposed by the API. The names are
// historical and do not map 1:1 onto status/payment columns; see the
// switch in applyFilter for the exact predicates.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterIncomplete Filter = "incomplete"
	FilterOverdue    Filter = "overdue"
	FilterOngoing    Filter = "ongoing"
	FilterFinished   Filter = "finished"
)

// ValidFilter reports whether f is a known list filter.
func ValidFilter(f Filter) bool {
	switch f {
	case FilterAll, FilterIncomplete, FilterOverdue, FilterOngoing, FilterFinished:
		return true
	}
	return false
}

// StatusCounts aggregates order counts per status.
type StatusCounts struct {
	Total     int
	Pending   int
	Completed int
	Refunded  int
}

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

func applyFilter(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	switch filter {
	case FilterIncomplete:
		return q.Where("status = ?", entity.StatusPending).
			Where("payment_status = ?", entity.PaymentUnpaid)
	case FilterOverdue:
		return q.Where("status = ?", entity.StatusPending)
	case FilterOngoing:
		return q.Where("status IN (?)", bun.In([]string{entity.StatusPending, entity.StatusCompleted})).
			Where("payment_status = ?", entity.PaymentUnpaid)
	case FilterFinished:
		return q.Where("status = ?", entity.StatusCompleted).
			Where("payment_status = ?", entity.PaymentPaid)
	default:
		return q
	}
}

// List returns one page of orders matching the filter, newest order number
// first, along with the total matching count before pagination.
func (r *Repository) List(ctx context.Context, filter Filter, page, limit int) ([]entity.Order, int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(
		attribute.String("order.filter", string(filter)),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	))
	defer span.End()

	orders := make([]entity.Order, 0, limit)
	q := r.reader.NewSelect().Model(&orders)
	q = applyFilter(q, filter)

	// order_number is compared as text; the original system sorted this way
	// and the sequence is seeded at #ORD1000 so digit counts stay aligned.
	total, err := q.OrderExpr("order_number DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}
	return orders, total, nil
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.number", order.OrderNumber)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update writes only the named columns of the order, keyed by primary key,
// and reports how many rows were touched.
func (r *Repository) Update(ctx context.Context, order *entity.Order, columns ...string) (int64, error) {
	if order == nil {
		return 0, errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model(order).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateStatus sets the status and updated_at of a single order, returning
// the affected row count. Zero means the id did not exist.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string, now time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}

// Delete hard-deletes an order by id and reports the affected row count.
func (r *Repository) Delete(ctx context.Context, id string) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus aggregates order counts for the stats endpoint.
func (r *Repository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CountByStatus")
	defer span.End()

	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := r.reader.NewSelect().Model((*entity.Order)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS count").
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return StatusCounts{}, err
	}

	var counts StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case entity.StatusPending:
			counts.Pending = row.Count
		case entity.StatusCompleted:
			counts.Completed = row.Count
		case entity.StatusRefunded:
			counts.Refunded = row.Count
		}
	}
	return counts, nil
}

// LastOrderNumber returns the highest order number by descending sort, or an
// empty string when no orders exist. The write connection is used so that
// allocations made earlier in the same batch are always observed.
func (r *Repository) LastOrderNumber(ctx context.Context) (string, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.LastOrderNumber")
	defer span.End()

	var number string
	err := r.writer.NewSelect().Model((*entity.Order)(nil)).
		Column("order_number").
		OrderExpr("order_number DESC").
		Limit(1).
		Scan(ctx, &number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return "", err
	}
	return number, nil
}
