package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/cache"
	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/dto"
	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/orderdesk/service/order")

const orderDateLayout = "2006-01-02"

// Service encapsulates business logic around orders.
type Service struct {
	repo      *repo.Repository
	allocator *Allocator
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Allocator  *Allocator
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		allocator: p.Allocator,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Stats aggregates order counts for the dashboard cards. Completed orders
// surface as "shipped" in the payload; that is the dashboard's vocabulary.
func (s *Service) Stats(ctx context.Context) (dto.OrderStats, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Stats")
	defer span.End()

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.OrderStats{}, errorbank.Internal("failed to load order stats", errorbank.WithCause(err))
	}
	return dto.OrderStats{
		TotalOrdersThisMonth: counts.Total,
		PendingOrders:        counts.Pending,
		ShippedOrders:        counts.Completed,
		RefundedOrders:       counts.Refunded,
	}, nil
}

// List returns one page of orders for the given filter. Pages past the end
// of the data come back empty with total and total_pages still accurate.
func (s *Service) List(ctx context.Context, filter repo.Filter, page, limit int) (*dto.OrderListResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(
		attribute.String("order.filter", string(filter)),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if !repo.ValidFilter(filter) {
		return nil, errorbank.BadRequest("unknown status filter", errorbank.WithDetail("status", string(filter)))
	}
	if page < 1 {
		return nil, errorbank.BadRequest("page must be >= 1")
	}
	if limit < 1 || limit > 100 {
		return nil, errorbank.BadRequest("limit must be between 1 and 100")
	}

	orders, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	resp := &dto.OrderListResponse{
		Orders:     make([]dto.OrderResponse, 0, len(orders)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, dto.FromOrder(&orders[i]))
	}
	return resp, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", id), zap.Error(err))
		}
	}

	return order, nil
}

// Create persists a new order with a fresh id and the next order number.
// Status defaults to pending and payment status to unpaid.
func (s *Service) Create(ctx context.Context, req dto.CreateOrderRequest) (*entity.Order, error) {
	if req.Customer.Name == "" || req.Customer.Email == "" {
		return nil, errorbank.BadRequest("customer name and email are required")
	}
	if req.TotalAmount < 0 {
		return nil, errorbank.BadRequest("total_amount must not be negative")
	}

	status := req.Status
	if status == "" {
		status = entity.StatusPending
	}
	if !entity.ValidStatus(status) {
		return nil, errorbank.BadRequest("unknown order status", errorbank.WithDetail("status", status))
	}
	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = entity.PaymentUnpaid
	}
	if !entity.ValidPaymentStatus(paymentStatus) {
		return nil, errorbank.BadRequest("unknown payment status", errorbank.WithDetail("payment_status", paymentStatus))
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.Create")
	defer span.End()

	number, err := s.allocator.NextOrderNumber(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocate number")
		return nil, errorbank.Internal("failed to allocate order number", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.String("order.number", number))

	now := time.Now().UTC()
	order := &entity.Order{
		ID:             uuid.NewString(),
		OrderNumber:    number,
		CustomerName:   req.Customer.Name,
		CustomerEmail:  req.Customer.Email,
		CustomerAvatar: req.Customer.Avatar,
		OrderDate:      now.Format(orderDateLayout),
		Status:         status,
		TotalAmount:    req.TotalAmount,
		PaymentStatus:  paymentStatus,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, EventOrderCreated, order)
	return order, nil
}

// Update applies a partial update and returns the post-update order. Absent
// fields are left untouched; a request carrying no applicable field performs
// no write and leaves updated_at alone.
func (s *Service) Update(ctx context.Context, id string, req dto.UpdateOrderRequest) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	columns, err := mergeUpdate(order, req)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return order, nil
	}

	order.UpdatedAt = time.Now().UTC()
	columns = append(columns, "updated_at")

	affected, err := s.repo.Update(ctx, order, columns...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}
	if affected == 0 {
		return nil, errorbank.NotFound("order not found")
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", id), zap.Error(err))
		}
	}

	s.publishEvent(ctx, EventOrderUpdated, order)
	return order, nil
}

// mergeUpdate copies the present request fields onto the order and returns
// the columns to write. Each tri-state branch is deliberate:
//   - customer name/email apply only when non-empty
//   - avatar applies whenever the key is present; explicit null clears it
//   - status/payment_status apply when non-empty, and must be valid
//   - total_amount applies whenever a non-null value is present, zero included
func mergeUpdate(order *entity.Order, req dto.UpdateOrderRequest) ([]string, error) {
	var columns []string

	if req.Customer.Valid {
		customer := req.Customer.Value
		if customer.Name != "" {
			order.CustomerName = customer.Name
			columns = append(columns, "customer_name")
		}
		if customer.Email != "" {
			order.CustomerEmail = customer.Email
			columns = append(columns, "customer_email")
		}
		if customer.Avatar.Set {
			if customer.Avatar.Valid {
				avatar := customer.Avatar.Value
				order.CustomerAvatar = &avatar
			} else {
				order.CustomerAvatar = nil
			}
			columns = append(columns, "customer_avatar")
		}
	}

	if req.Status.Valid && req.Status.Value != "" {
		if !entity.ValidStatus(req.Status.Value) {
			return nil, errorbank.BadRequest("unknown order status", errorbank.WithDetail("status", req.Status.Value))
		}
		order.Status = req.Status.Value
		columns = append(columns, "status")
	}

	if req.TotalAmount.Valid {
		if req.TotalAmount.Value < 0 {
			return nil, errorbank.BadRequest("total_amount must not be negative")
		}
		order.TotalAmount = req.TotalAmount.Value
		columns = append(columns, "total_amount")
	}

	if req.PaymentStatus.Valid && req.PaymentStatus.Value != "" {
		if !entity.ValidPaymentStatus(req.PaymentStatus.Value) {
			return nil, errorbank.BadRequest("unknown payment status", errorbank.WithDetail("payment_status", req.PaymentStatus.Value))
		}
		order.PaymentStatus = req.PaymentStatus.Value
		columns = append(columns, "payment_status")
	}

	return columns, nil
}

// Delete hard-deletes an order.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to delete order", errorbank.WithCause(err))
	}
	if affected == 0 {
		return errorbank.NotFound("order not found")
	}

	s.dropFromCache(ctx, id)
	s.publishEvent(ctx, EventOrderDeleted, &entity.Order{ID: id})
	return nil
}

// BulkUpdateStatus sets the status on each listed order, strictly in input
// order. Ids that do not exist are skipped silently and excluded from the
// result.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status string) (*dto.BulkStatusResult, error) {
	if !entity.ValidStatus(status) {
		return nil, errorbank.BadRequest("unknown order status", errorbank.WithDetail("status", status))
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkUpdateStatus", trace.WithAttributes(
		attribute.Int("order.count", len(ids)),
		attribute.String("order.status", status),
	))
	defer span.End()

	now := time.Now().UTC()
	result := &dto.BulkStatusResult{Orders: []dto.BulkStatusOrder{}}
	for _, id := range ids {
		affected, err := s.repo.UpdateStatus(ctx, id, status, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
		}
		if affected == 0 {
			continue
		}
		result.Orders = append(result.Orders, dto.BulkStatusOrder{ID: id, Status: status})
		s.dropFromCache(ctx, id)
		s.publishEvent(ctx, EventOrderUpdated, &entity.Order{ID: id, Status: status})
	}
	result.UpdatedCount = len(result.Orders)
	return result, nil
}

// BulkDuplicate copies each existing order into a fresh one with a new id,
// the next order number, and fresh timestamps. Duplicates are created
// sequentially so numbers stay consecutive within one call.
func (s *Service) BulkDuplicate(ctx context.Context, ids []string) (*dto.BulkDuplicateResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkDuplicate", trace.WithAttributes(attribute.Int("order.count", len(ids))))
	defer span.End()

	now := time.Now().UTC()
	result := &dto.BulkDuplicateResult{NewOrders: []dto.DuplicateOrder{}}
	for _, id := range ids {
		src, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
		}

		number, err := s.allocator.NextOrderNumber(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "allocate number")
			return nil, errorbank.Internal("failed to allocate order number", errorbank.WithCause(err))
		}

		dup := &entity.Order{
			ID:            uuid.NewString(),
			OrderNumber:   number,
			CustomerName:  src.CustomerName,
			CustomerEmail: src.CustomerEmail,
			OrderDate:     src.OrderDate,
			Status:        src.Status,
			TotalAmount:   src.TotalAmount,
			PaymentStatus: src.PaymentStatus,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if src.CustomerAvatar != nil {
			avatar := *src.CustomerAvatar
			dup.CustomerAvatar = &avatar
		}

		if err := s.repo.Create(ctx, dup); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to duplicate order", errorbank.WithCause(err))
		}

		result.NewOrders = append(result.NewOrders, dto.DuplicateOrder{
			ID:              dup.ID,
			OrderNumber:     dup.OrderNumber,
			OriginalOrderID: id,
		})
		s.publishEvent(ctx, EventOrderCreated, dup)
	}
	result.DuplicatedCount = len(result.NewOrders)
	return result, nil
}

// BulkDelete removes each existing order, skipping unknown ids silently.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (*dto.BulkDeleteResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkDelete", trace.WithAttributes(attribute.Int("order.count", len(ids))))
	defer span.End()

	result := &dto.BulkDeleteResult{DeletedIDs: []string{}}
	for _, id := range ids {
		affected, err := s.repo.Delete(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to delete order", errorbank.WithCause(err))
		}
		if affected == 0 {
			continue
		}
		result.DeletedIDs = append(result.DeletedIDs, id)
		s.dropFromCache(ctx, id)
		s.publishEvent(ctx, EventOrderDeleted, &entity.Order{ID: id})
	}
	result.DeletedCount = len(result.DeletedIDs)
	return result, nil
}

func (s *Service) publishEvent(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderEvent{
		Type:        eventType,
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		OccurredAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order event", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%s", order.ID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order event", zap.String("type", eventType), zap.Error(err))
		}
	}
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	var order entity.Order
	if err := cache.GetJSON(ctx, s.cache, cache.Key("orders", id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, cache.Key("orders", order.ID), order, s.cacheTTL)
}

func (s *Service) dropFromCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.Key("orders", id)); err != nil && s.logger != nil {
		s.logger.Warn("orders cache delete failed", zap.String("id", id), zap.Error(err))
	}
}

// Order lifecycle event types published to the message bus.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.status_changed"
	EventOrderDeleted = "order.deleted"
)

// OrderEvent is the envelope for order lifecycle events.
type OrderEvent struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number,omitempty"`
	Status      string    `json:"status,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
