package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRepository reads the menu catalog and the price ledger. Each price
// change inserts a new menu_item_prices row; exactly one row per item is
// flagged current, and that row's id is the ledger reference handed to the
// cart.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetItem(ctx context.Context, itemID string) (*MenuItem, error) {
	query := `
		SELECT id, name, description, image_url, category, available
		FROM menu_items
		WHERE id = ?
	`

	item := &MenuItem{}
	var description, imageURL sql.NullString
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID,
		&item.Name,
		&description,
		&imageURL,
		&item.Category,
		&item.Available,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu item: %w", err)
	}

	if description.Valid {
		item.Description = &description.String
	}
	if imageURL.Valid {
		item.ImageURL = &imageURL.String
	}
	return item, nil
}

func (r *SQLiteRepository) CurrentPrice(ctx context.Context, itemID string) (*PriceQuote, error) {
	query := `
		SELECT id, amount, currency
		FROM menu_item_prices
		WHERE menu_item_id = ? AND is_current = 1
	`

	var quote PriceQuote
	var amount string
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&quote.LedgerID, &amount, &quote.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPriceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query current price: %w", err)
	}

	quote.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger amount %q: %w", amount, err)
	}
	return &quote, nil
}

func (r *SQLiteRepository) ModifierGroups(ctx context.Context, itemID string) ([]ModifierGroup, error) {
	groupQuery := `
		SELECT id, name, required, min_select, max_select
		FROM modifier_groups
		WHERE menu_item_id = ?
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, groupQuery, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifier groups: %w", err)
	}
	defer rows.Close()

	var groups []ModifierGroup
	for rows.Next() {
		var g ModifierGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Required, &g.MinSelect, &g.MaxSelect); err != nil {
			return nil, fmt.Errorf("failed to scan modifier group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modifier groups: %w", err)
	}

	for i := range groups {
		options, err := r.modifierOptions(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Options = options
	}
	return groups, nil
}

func (r *SQLiteRepository) modifierOptions(ctx context.Context, groupID string) ([]ModifierOption, error) {
	query := `
		SELECT id, name, price_adjustment
		FROM modifier_options
		WHERE group_id = ?
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifier options: %w", err)
	}
	defer rows.Close()

	var options []ModifierOption
	for rows.Next() {
		var o ModifierOption
		var adjustment string
		if err := rows.Scan(&o.ID, &o.Name, &adjustment); err != nil {
			return nil, fmt.Errorf("failed to scan modifier option: %w", err)
		}
		o.PriceAdjustment, err = decimal.NewFromString(adjustment)
		if err != nil {
			return nil, fmt.Errorf("invalid price adjustment %q: %w", adjustment, err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modifier options: %w", err)
	}
	return options, nil
}
