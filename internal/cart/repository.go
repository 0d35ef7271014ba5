package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopwindow/internal/domain"
)

var (
	ErrItemNotFound = errors.New("cart item not found")
)

// Repository defines the interface for cart persistence. Rows are keyed
// by (session, product); insertion order is the display order.
type Repository interface {
	List(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Get(ctx context.Context, sessionID string, productID int) (*domain.CartItem, error)
	Insert(ctx context.Context, sessionID string, item domain.CartItem) error
	UpdateQuantity(ctx context.Context, sessionID string, productID, quantity int) error
	Delete(ctx context.Context, sessionID string, productID int) error
	DeleteAll(ctx context.Context, sessionID string) error
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a new instance of Repository backed by Postgres.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// List retrieves the cart lines for a session in insertion order.
func (r *repository) List(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	query := `
		SELECT product_id, title, price, thumbnail, quantity
		FROM cart_items
		WHERE session_id = $1
		ORDER BY created_at, product_id
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Price, &item.Thumbnail, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Get retrieves a single cart line, or ErrItemNotFound.
func (r *repository) Get(ctx context.Context, sessionID string, productID int) (*domain.CartItem, error) {
	query := `
		SELECT product_id, title, price, thumbnail, quantity
		FROM cart_items
		WHERE session_id = $1 AND product_id = $2
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, sessionID, productID).Scan(
		&item.ID,
		&item.Title,
		&item.Price,
		&item.Thumbnail,
		&item.Quantity,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	return item, nil
}

// Insert adds a new cart line using parameterized queries.
func (r *repository) Insert(ctx context.Context, sessionID string, item domain.CartItem) error {
	query := `
		INSERT INTO cart_items (session_id, product_id, title, price, thumbnail, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		sessionID,
		item.ID,
		item.Title,
		item.Price,
		item.Thumbnail,
		item.Quantity,
	)

	if err != nil {
		return fmt.Errorf("failed to insert cart item: %w", err)
	}

	return nil
}

// UpdateQuantity sets the quantity for an existing line.
func (r *repository) UpdateQuantity(ctx context.Context, sessionID string, productID, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE session_id = $1 AND product_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Delete removes one line from the cart.
func (r *repository) Delete(ctx context.Context, sessionID string, productID int) error {
	query := `DELETE FROM cart_items WHERE session_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, sessionID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// DeleteAll empties the session's cart.
func (r *repository) DeleteAll(ctx context.Context, sessionID string) error {
	query := `DELETE FROM cart_items WHERE session_id = $1`

	if _, err := r.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
