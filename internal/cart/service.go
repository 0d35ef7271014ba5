// Package cart persists the shopping cart per session and owns its
// lifecycle rules: a product enters the cart with quantity 1, repeat adds
// increment, and a quantity edit that reaches zero removes the line.
package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shopwindow/internal/domain"
)

// Service holds the cart business rules over a Repository. All mutations
// are synchronous read-modify-write; concurrent tabs sharing one session
// race each other, which mirrors the persistence model this replaces.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a cart Service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Add puts a product into the cart. A product already present has its
// quantity incremented; a new one starts at quantity 1 regardless of the
// quantity carried on item.
func (s *Service) Add(ctx context.Context, sessionID string, item domain.CartItem) error {
	existing, err := s.repo.Get(ctx, sessionID, item.ID)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		return fmt.Errorf("failed to read cart line: %w", err)
	}

	if existing != nil {
		return s.repo.UpdateQuantity(ctx, sessionID, item.ID, existing.Quantity+1)
	}

	item.Quantity = 1
	return s.repo.Insert(ctx, sessionID, item)
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the
// line instead.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID, quantity int) error {
	if quantity <= 0 {
		return s.repo.Delete(ctx, sessionID, productID)
	}
	return s.repo.UpdateQuantity(ctx, sessionID, productID, quantity)
}

// Remove deletes a line explicitly.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int) error {
	return s.repo.Delete(ctx, sessionID, productID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.repo.DeleteAll(ctx, sessionID)
}

// Items returns the cart lines in insertion order.
func (s *Service) Items(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	return s.repo.List(ctx, sessionID)
}

// Totals sums quantities and prices the way the storefront displays them.
func (s *Service) Totals(ctx context.Context, sessionID string) (domain.CartTotals, error) {
	items, err := s.repo.List(ctx, sessionID)
	if err != nil {
		return domain.CartTotals{}, err
	}

	var totals domain.CartTotals
	for _, item := range items {
		totals.TotalItems += item.Quantity
		totals.TotalPrice += item.Price * float64(item.Quantity)
	}
	return totals, nil
}
