package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderdesk/internal/dto"
	"github.com/Additional-Code/orderdesk/internal/presentation/http/response"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	service "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/orderdesk/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group. Static segments (stats, bulk)
// must be registered alongside the :id routes; echo resolves them first.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("/stats", h.stats)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PUT("/bulk/status", h.bulkStatus)
	g.POST("/bulk/duplicate", h.bulkDuplicate)
	g.DELETE("/bulk", h.bulkDelete)
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.stats")
	defer span.End()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(stats).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter := repo.Filter(c.QueryParam("status"))
	if filter == "" {
		filter = repo.FilterAll
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return b.WithError(err).Build()
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(
		attribute.String("order.filter", string(filter)),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	))
	defer span.End()

	result, err := h.svc.List(ctx, filter, page, limit)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(result).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	order, err := h.svc.Create(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.String("order.number", order.OrderNumber))

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.UpdateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, id, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) bulkStatus(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkStatus", trace.WithAttributes(attribute.Int("order.count", len(payload.OrderIDs))))
	defer span.End()

	result, err := h.svc.BulkUpdateStatus(ctx, payload.OrderIDs, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(result).Build()
}

func (h *Handler) bulkDuplicate(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkDuplicateRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkDuplicate", trace.WithAttributes(attribute.Int("order.count", len(payload.OrderIDs))))
	defer span.End()

	result, err := h.svc.BulkDuplicate(ctx, payload.OrderIDs)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(result).Build()
}

func (h *Handler) bulkDelete(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkDeleteRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkDelete", trace.WithAttributes(attribute.Int("order.count", len(payload.OrderIDs))))
	defer span.End()

	result, err := h.svc.BulkDelete(ctx, payload.OrderIDs)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(result).Build()
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return v, nil
}
