package repository

import (
	"context"
	"fmt"

	"telegram_rewards/internal/domain"
)

type ItemRepository struct {
	db DB
}

func NewItemRepository(db DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) GetInventory(ctx context.Context, userID int64) (domain.Inventory, error) {
	return loadInventory(ctx, r.db, userID, false)
}

// Grant adds quantity of an item, creating the row if needed.
func (r *ItemRepository) Grant(ctx context.Context, userID int64, kind domain.ItemKind, qty int64) error {
	if !kind.Valid() || qty <= 0 {
		return fmt.Errorf("invalid item grant %s x%d", kind, qty)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_items (user_id, item, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, item) DO UPDATE SET quantity = user_items.quantity + EXCLUDED.quantity`,
		userID, kind.String(), qty,
	)
	return err
}

func loadInventory(ctx context.Context, q querier, userID int64, lock bool) (domain.Inventory, error) {
	sql := `SELECT item, quantity FROM user_items WHERE user_id = $1 AND quantity > 0`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inv := domain.Inventory{}
	for rows.Next() {
		var code string
		var qty int64
		if err := rows.Scan(&code, &qty); err != nil {
			return nil, err
		}
		kind, err := domain.ParseItemKind(code)
		if err != nil {
			continue
		}
		inv[kind] = qty
	}
	return inv, rows.Err()
}

// consumeItem removes exactly one unit. It fails with ErrItemMissing when
// nothing is left, so an item can never be spent twice.
func consumeItem(ctx context.Context, q querier, use domain.ItemUse) error {
	tag, err := q.Exec(ctx,
		`UPDATE user_items SET quantity = quantity - 1
		 WHERE user_id = $1 AND item = $2 AND quantity >= 1`,
		use.UserID, use.Kind.String(),
	)
	if err != nil {
		return fmt.Errorf("consume item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemMissing
	}
	return nil
}
