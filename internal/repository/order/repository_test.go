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

	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/repository/order"
)

func newTestRepo(t *testing.T) (*order.Repository, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*entity.Order)(nil)).Exec(context.Background())
	require.NoError(t, err)

	return order.NewRepository(&database.Connections{Writer: db, Reader: db}), db
}

func insertOrder(t *testing.T, repo *order.Repository, number, status, payment string) *entity.Order {
	t.Helper()

	now := time.Now().UTC()
	o := &entity.Order{
		ID:            uuid.NewString(),
		OrderNumber:   number,
		CustomerName:  "Test Customer",
		CustomerEmail: "customer@example.com",
		OrderDate:     now.Format("2006-01-02"),
		Status:        status,
		TotalAmount:   42.50,
		PaymentStatus: payment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestList_FilterPredicates(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// One order per status x payment combination.
	combos := []struct {
		number  string
		status  string
		payment string
	}{
		{"#ORD1000", entity.StatusPending, entity.PaymentUnpaid},
		{"#ORD1001", entity.StatusPending, entity.PaymentPaid},
		{"#ORD1002", entity.StatusCompleted, entity.PaymentUnpaid},
		{"#ORD1003", entity.StatusCompleted, entity.PaymentPaid},
		{"#ORD1004", entity.StatusRefunded, entity.PaymentUnpaid},
		{"#ORD1005", entity.StatusRefunded, entity.PaymentPaid},
	}
	for _, c := range combos {
		insertOrder(t, repo, c.number, c.status, c.payment)
	}

	cases := []struct {
		filter  order.Filter
		numbers []string
	}{
		{order.FilterAll, []string{"#ORD1005", "#ORD1004", "#ORD1003", "#ORD1002", "#ORD1001", "#ORD1000"}},
		{order.FilterIncomplete, []string{"#ORD1000"}},
		{order.FilterOverdue, []string{"#ORD1001", "#ORD1000"}},
		{order.FilterOngoing, []string{"#ORD1002", "#ORD1000"}},
		{order.FilterFinished, []string{"#ORD1003"}},
	}

	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			orders, total, err := repo.List(ctx, tc.filter, 1, 100)
			require.NoError(t, err)
			assert.Equal(t, len(tc.numbers), total)

			numbers := make([]string, 0, len(orders))
			for _, o := range orders {
				numbers = append(numbers, o.OrderNumber)
			}
			assert.Equal(t, tc.numbers, numbers)
		})
	}
}

func TestList_Pagination(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		insertOrder(t, repo, fmt.Sprintf("#ORD100%d", i), entity.StatusPending, entity.PaymentUnpaid)
	}

	t.Run("full page", func(t *testing.T) {
		orders, total, err := repo.List(ctx, order.FilterAll, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, orders, 2)
	})

	t.Run("partial last page", func(t *testing.T) {
		orders, total, err := repo.List(ctx, order.FilterAll, 3, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, orders, 1)
	})

	t.Run("page past the end is empty but total stays accurate", func(t *testing.T) {
		orders, total, err := repo.List(ctx, order.FilterAll, 4, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, orders)
	})
}

func TestGetByID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created := insertOrder(t, repo, "#ORD1000", entity.StatusPending, entity.PaymentUnpaid)

	t.Run("existing id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.OrderNumber, got.OrderNumber)
		assert.Equal(t, created.CustomerEmail, got.CustomerEmail)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		require.ErrorIs(t, err, order.ErrNotFound)
	})
}

func TestUpdateStatus_RowsAffected(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created := insertOrder(t, repo, "#ORD1000", entity.StatusPending, entity.PaymentUnpaid)
	now := time.Now().UTC()

	affected, err := repo.UpdateStatus(ctx, created.ID, entity.StatusCompleted, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.UpdateStatus(ctx, uuid.NewString(), entity.StatusCompleted, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, got.Status)
}

func TestDelete_RowsAffected(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created := insertOrder(t, repo, "#ORD1000", entity.StatusPending, entity.PaymentUnpaid)

	affected, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	_, err = repo.GetByID(ctx, created.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCountByStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	insertOrder(t, repo, "#ORD1000", entity.StatusPending, entity.PaymentUnpaid)
	insertOrder(t, repo, "#ORD1001", entity.StatusPending, entity.PaymentPaid)
	insertOrder(t, repo, "#ORD1002", entity.StatusCompleted, entity.PaymentPaid)
	insertOrder(t, repo, "#ORD1003", entity.StatusRefunded, entity.PaymentPaid)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 2, counts.Pending)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, 1, counts.Refunded)
}

func TestLastOrderNumber(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		number, err := repo.LastOrderNumber(ctx)
		require.NoError(t, err)
		assert.Empty(t, number)
	})

	t.Run("highest by descending sort", func(t *testing.T) {
		insertOrder(t, repo, "#ORD1000", entity.StatusPending, entity.PaymentUnpaid)
		insertOrder(t, repo, "#ORD1002", entity.StatusPending, entity.PaymentUnpaid)
		insertOrder(t, repo, "#ORD1001", entity.StatusPending, entity.PaymentUnpaid)

		number, err := repo.LastOrderNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, "#ORD1002", number)
	})
}

func TestValidFilter(t *testing.T) {
	for _, f := range []order.Filter{order.FilterAll, order.FilterIncomplete, order.FilterOverdue, order.FilterOngoing, order.FilterFinished} {
		assert.True(t, order.ValidFilter(f))
	}
	assert.False(t, order.ValidFilter("shipped"))
	assert.False(t, order.ValidFilter(""))
}
