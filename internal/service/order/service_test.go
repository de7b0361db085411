package order_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/dto"
	"github.com/Additional-Code/orderdesk/internal/entity"
	orderrepo "github.com/Additional-Code/orderdesk/internal/repository/order"
	ordersvc "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

func newTestService(t *testing.T) (*ordersvc.Service, *orderrepo.Repository) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*entity.Order)(nil)).Exec(context.Background())
	require.NoError(t, err)

	repo := orderrepo.NewRepository(&database.Connections{Writer: db, Reader: db})
	svc := ordersvc.NewService(ordersvc.Params{
		Repository: repo,
		Allocator:  ordersvc.NewAllocator(repo),
		Config:     config.Config{Cache: config.Cache{DefaultTTL: time.Minute}},
		Logger:     zap.NewNop(),
	})
	return svc, repo
}

func createOrder(t *testing.T, svc *ordersvc.Service, req dto.CreateOrderRequest) *entity.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return order
}

func simpleCreate(name, email string, amount float64) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Customer:    dto.CustomerInput{Name: name, Email: email},
		TotalAmount: amount,
	}
}

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newTestService(t)

	order := createOrder(t, svc, simpleCreate("A", "a@x.com", 10))

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "#ORD1000", order.OrderNumber)
	assert.Equal(t, entity.StatusPending, order.Status)
	assert.Equal(t, entity.PaymentUnpaid, order.PaymentStatus)
	assert.Equal(t, 10.0, order.TotalAmount)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), order.OrderDate)
	assert.False(t, order.CreatedAt.IsZero())
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
}

func TestCreate_SequentialOrderNumbers(t *testing.T) {
	svc, _ := newTestService(t)

	for i := 0; i < 5; i++ {
		order := createOrder(t, svc, simpleCreate("A", "a@x.com", 1))
		assert.Equal(t, fmt.Sprintf("#ORD%d", 1000+i), order.OrderNumber)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("missing customer name", func(t *testing.T) {
		_, err := svc.Create(ctx, simpleCreate("", "a@x.com", 1))
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := svc.Create(ctx, simpleCreate("A", "a@x.com", -1))
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	})

	t.Run("unknown status", func(t *testing.T) {
		req := simpleCreate("A", "a@x.com", 1)
		req.Status = "shipped"
		_, err := svc.Create(ctx, req)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	})
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := createOrder(t, svc, simpleCreate("A", "a@x.com", 10))

	t.Run("existing", func(t *testing.T) {
		got, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.OrderNumber, got.OrderNumber)
	})

	t.Run("missing id surfaces not found", func(t *testing.T) {
		_, err := svc.Get(ctx, uuid.NewString())
		require.Error(t, err)
		assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
	})
}

func TestUpdate_StatusOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := createOrder(t, svc, simpleCreate("A", "a@x.com", 10))
	time.Sleep(10 * time.Millisecond)

	updated, err := svc.Update(ctx, created.ID, dto.UpdateOrderRequest{
		Status: dto.Some(entity.StatusCompleted),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCompleted, updated.Status)
	assert.Equal(t, created.CustomerName, updated.CustomerName)
	assert.Equal(t, created.CustomerEmail, updated.CustomerEmail)
	assert.Equal(t, created.TotalAmount, updated.TotalAmount)
	assert.Equal(t, created.PaymentStatus, updated.PaymentStatus)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond)
}

func TestUpdate_EmptyRequestIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := createOrder(t, svc, simpleCreate("A", "a@x.com", 10))

	updated, err := svc.Update(ctx, created.ID, dto.UpdateOrderRequest{})
	require.NoError(t, err)
	assert.WithinDuration(t, created.UpdatedAt, updated.UpdatedAt, time.Millisecond)
}

func TestUpdate_FalsySkipSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	avatar := "https://example.com/a.png"
	req := simpleCreate("A", "a@x.com", 10)
	req.Customer.Avatar = &avatar
	created := createOrder(t, svc, req)

	t.Run("empty name and email are skipped", func(t *testing.T) {
		updated, err := svc.Update(ctx, created.ID, dto.UpdateOrderRequest{
			Customer: dto.Some(dto.CustomerUpdate{Name: "", Email: ""}),
		})
		require.NoError(t, err)
		assert.Equal(t, "A", updated.CustomerName)
		assert.Equal(t, "a@x.com", updated.CustomerEmail)
	})

	t.Run("explicit null avatar clears it", func(t *testing.T) {
		updated, err := svc.Update(ctx, created.ID, dto.UpdateOrderRequest{
			Customer: dto.Some(dto.CustomerUpdate{Avatar: dto.Null[string]()}),
		})
		require.NoError(t, err)
		assert.Nil(t, updated.CustomerAvatar)
	})

	t.Run("explicit zero amount applies", func(t *testing.T) {
		updated, err := svc.Update(ctx, created.ID, dto.UpdateOrderRequest{
			TotalAmount: dto.Some(0.0),
		})
		require.NoError(t, err)
		assert.Zero(t, updated.TotalAmount)
	})
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), uuid.NewString(), dto.UpdateOrderRequest{
		Status: dto.Some(entity.StatusCompleted),
	})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestDelete_ThenGetNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := createOrder(t, svc, simpleCreate("A", "a@x.com", 10))

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err := svc.Get(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())

	err = svc.Delete(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestList_Paging(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createOrder(t, svc, simpleCreate("A", "a@x.com", float64(i)))
	}

	t.Run("total pages rounds up", func(t *testing.T) {
		page, err := svc.List(ctx, orderrepo.FilterAll, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		assert.Len(t, page.Orders, 2)
	})

	t.Run("empty result keeps total pages at one", func(t *testing.T) {
		page, err := svc.List(ctx, orderrepo.FilterFinished, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.Empty(t, page.Orders)
	})

	t.Run("page past the end", func(t *testing.T) {
		page, err := svc.List(ctx, orderrepo.FilterAll, 9, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Empty(t, page.Orders)
	})

	t.Run("orders sorted by number descending", func(t *testing.T) {
		page, err := svc.List(ctx, orderrepo.FilterAll, 1, 10)
		require.NoError(t, err)
		require.Len(t, page.Orders, 5)
		assert.Equal(t, "#ORD1004", page.Orders[0].OrderNumber)
		assert.Equal(t, "#ORD1000", page.Orders[4].OrderNumber)
	})
}

func TestList_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter orderrepo.Filter
		page   int
		limit  int
	}{
		{"unknown filter", "shipped", 1, 10},
		{"zero page", orderrepo.FilterAll, 0, 10},
		{"zero limit", orderrepo.FilterAll, 1, 0},
		{"limit above cap", orderrepo.FilterAll, 1, 101},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.List(ctx, tc.filter, tc.page, tc.limit)
			require.Error(t, err)
			assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
		})
	}
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, createOrder(t, svc, simpleCreate("A", "a@x.com", 1)).ID)
	}
	_, err := svc.BulkUpdateStatus(ctx, ids[:2], entity.StatusCompleted)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalOrdersThisMonth)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 2, stats.ShippedOrders)
	assert.Zero(t, stats.RefundedOrders)
}

func TestBulkUpdateStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := createOrder(t, svc, simpleCreate("A", "a@x.com", 1))
	second := createOrder(t, svc, simpleCreate("B", "b@x.com", 2))

	t.Run("missing ids are skipped silently", func(t *testing.T) {
		result, err := svc.BulkUpdateStatus(ctx, []string{first.ID, uuid.NewString(), second.ID}, entity.StatusRefunded)
		require.NoError(t, err)
		assert.Equal(t, 2, result.UpdatedCount)
		require.Len(t, result.Orders, 2)
		assert.Equal(t, first.ID, result.Orders[0].ID)
		assert.Equal(t, entity.StatusRefunded, result.Orders[0].Status)
		assert.Equal(t, second.ID, result.Orders[1].ID)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := svc.BulkUpdateStatus(ctx, []string{first.ID}, "shipped")
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	})
}

func TestBulkDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := createOrder(t, svc, simpleCreate("A", "a@x.com", 10))
	second := createOrder(t, svc, simpleCreate("B", "b@x.com", 20))

	result, err := svc.BulkDuplicate(ctx, []string{first.ID, uuid.NewString(), second.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DuplicatedCount)
	require.Len(t, result.NewOrders, 2)

	// Numbers continue the sequence consecutively, in input order.
	assert.Equal(t, "#ORD1002", result.NewOrders[0].OrderNumber)
	assert.Equal(t, "#ORD1003", result.NewOrders[1].OrderNumber)
	assert.Equal(t, first.ID, result.NewOrders[0].OriginalOrderID)
	assert.Equal(t, second.ID, result.NewOrders[1].OriginalOrderID)

	dup, err := svc.Get(ctx, result.NewOrders[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, dup.ID)
	assert.Equal(t, first.CustomerName, dup.CustomerName)
	assert.Equal(t, first.CustomerEmail, dup.CustomerEmail)
	assert.Equal(t, first.OrderDate, dup.OrderDate)
	assert.Equal(t, first.Status, dup.Status)
	assert.Equal(t, first.TotalAmount, dup.TotalAmount)
	assert.Equal(t, first.PaymentStatus, dup.PaymentStatus)
}

func TestBulkDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := createOrder(t, svc, simpleCreate("A", "a@x.com", 1))
	second := createOrder(t, svc, simpleCreate("B", "b@x.com", 2))
	missing := uuid.NewString()

	result, err := svc.BulkDelete(ctx, []string{first.ID, missing, second.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Equal(t, []string{first.ID, second.ID}, result.DeletedIDs)

	_, err = svc.Get(ctx, first.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}
