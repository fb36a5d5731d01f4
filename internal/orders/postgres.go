package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Repository persists orders in postgres. The submission's item list is
// stored as JSONB so the audit trail (selected modifiers, ledger references,
// locked prices) survives exactly as submitted.
type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts the order and its order.created outbox event in one
// transaction. A repeated idempotency key returns the previously created
// order instead of inserting a second one.
func (r *Repository) Create(ctx context.Context, idempotencyKey string, sub *domain.OrderSubmission) (*CreatedOrder, error) {
	itemsJSON, err := json.Marshal(sub.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}

	id := uuid.New()
	now := time.Now()
	order := &CreatedOrder{
		ID:          id,
		OrderNumber: orderNumber(id),
		Status:      OrderStatusPending,
		CreatedAt:   now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insertOrder := `INSERT INTO orders
		(id, order_number, idempotency_key, organization_id, table_id, table_name,
		 customer_name, customer_phone, customer_notes, order_type,
		 subtotal, total_amount, currency, items, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`

	_, insertErr := tx.ExecContext(ctx, insertOrder,
		order.ID,
		order.OrderNumber,
		idempotencyKey,
		sub.OrganizationID,
		sub.TableID,
		sub.TableName,
		sub.CustomerName,
		sub.CustomerPhone,
		sub.CustomerNotes,
		string(sub.OrderType),
		sub.Subtotal.String(),
		sub.TotalAmount.String(),
		sub.Currency,
		itemsJSON,
		order.Status.String(),
		now)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			existing, getErr := r.GetByIdempotencyKey(ctx, idempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrDuplicateOrder, getErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("insert order: %w", insertErr)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":        order.ID,
		"order_number":    order.OrderNumber,
		"organization_id": sub.OrganizationID,
		"order_type":      sub.OrderType,
		"total_amount":    sub.TotalAmount,
		"currency":        sub.Currency,
		"created_at":      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	insertEvent := `INSERT INTO order_events (order_id, event_type, payload, processed, created_at)
		VALUES ($1, $2, $3, false, $4)`
	if _, e2 := tx.ExecContext(ctx, insertEvent, order.ID, "order.created", payload, now); e2 != nil {
		return nil, fmt.Errorf("insert order event: %w", e2)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return order, nil
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*CreatedOrder, error) {
	query := `SELECT id, order_number, status, created_at FROM orders WHERE idempotency_key = $1`

	var order CreatedOrder
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.Status,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}
	return &order, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, order_id, event_type, payload, created_at
	          FROM order_events
	          WHERE processed = false
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := `UPDATE order_events SET processed = true, processed_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

// orderNumber derives the short code printed on the confirmation screen from
// the order uuid.
func orderNumber(id uuid.UUID) string {
	compact := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "EM-" + compact[:8]
}
