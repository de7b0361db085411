package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

type sample struct {
	number  string
	name    string
	email   string
	color   string
	date    string
	status  string
	amount  float64
	payment string
}

// Orders seeds example orders if they are missing. Existing order numbers
// are left untouched so reseeding never overwrites live data.
func (s *Seeder) Orders(ctx context.Context) error {
	samples := []sample{
		{"#ORD1009", "Esther Kiehn", "esther@example.com", "f97316", "2025-01-31", entity.StatusPending, 10.50, entity.PaymentUnpaid},
		{"#ORD1008", "Denise Kuhn", "denise@example.com", "3b82f6", "2025-01-30", entity.StatusPending, 100.50, entity.PaymentUnpaid},
		{"#ORD1007", "Clint Hoppe", "clint@example.com", "10b981", "2025-01-30", entity.StatusCompleted, 60.56, entity.PaymentPaid},
		{"#ORD1006", "Darin Deckow", "darin@example.com", "8b5cf6", "2025-01-29", entity.StatusRefunded, 640.50, entity.PaymentPaid},
		{"#ORD1005", "Jacquelyn Robel", "jacquelyn@example.com", "ec4899", "2025-01-29", entity.StatusCompleted, 39.50, entity.PaymentPaid},
		{"#ORD1004", "Marcus Chen", "marcus@example.com", "06b6d4", "2025-01-28", entity.StatusPending, 250.00, entity.PaymentPaid},
		{"#ORD1003", "Erin Bins", "erin@example.com", "f59e0b", "2025-01-28", entity.StatusCompleted, 120.35, entity.PaymentPaid},
		{"#ORD1002", "Gretchen Quitz", "gretchen@example.com", "ef4444", "2025-01-27", entity.StatusRefunded, 123.50, entity.PaymentPaid},
		{"#ORD1001", "Daniel Moore", "daniel@example.com", "6366f1", "2025-01-27", entity.StatusCompleted, 15.99, entity.PaymentUnpaid},
		{"#ORD1000", "Mia Martin", "mia@example.com", "14b8a6", "2025-01-26", entity.StatusCompleted, 185.00, entity.PaymentPaid},
	}

	now := time.Now().UTC()
	for _, sm := range samples {
		avatar := avatarURL(sm.name, sm.color)
		order := entity.Order{
			ID:             uuid.NewString(),
			OrderNumber:    sm.number,
			CustomerName:   sm.name,
			CustomerEmail:  sm.email,
			CustomerAvatar: &avatar,
			OrderDate:      sm.date,
			Status:         sm.status,
			TotalAmount:    sm.amount,
			PaymentStatus:  sm.payment,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (order_number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}

func avatarURL(name, color string) string {
	return fmt.Sprintf(
		"https://ui-avatars.com/api/?name=%s&background=%s&color=fff&size=40&bold=true",
		strings.ReplaceAll(name, " ", "+"), color,
	)
}
