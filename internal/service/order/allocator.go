package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/codes"

	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
)

const (
	orderNumberPrefix = "#ORD"
	firstOrderNumber  = orderNumberPrefix + "1000"
)

// Allocator mints human-readable order numbers. Numbers are strictly
// monotonic: each allocation reads the current highest number, so it must be
// called once per created order, after the previous order in a batch has
// been persisted.
type Allocator struct {
	repo *repo.Repository
}

// NewAllocator wires an Allocator on top of the order repository.
func NewAllocator(r *repo.Repository) *Allocator {
	return &Allocator{repo: r}
}

// NextOrderNumber returns the next number in the #ORD sequence, starting at
// #ORD1000 when no orders exist.
func (a *Allocator) NextOrderNumber(ctx context.Context) (string, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderAllocator.NextOrderNumber")
	defer span.End()

	last, err := a.repo.LastOrderNumber(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read last number")
		return "", err
	}
	if last == "" {
		return firstOrderNumber, nil
	}

	suffix, err := strconv.Atoi(strings.TrimPrefix(last, orderNumberPrefix))
	if err != nil {
		return "", fmt.Errorf("malformed order number %q: %w", last, err)
	}
	return orderNumberPrefix + strconv.Itoa(suffix+1), nil
}
