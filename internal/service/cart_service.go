package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/repository"
)

// CartSummary is the cart view before an address is known. CartTotal is
// subtotal plus shipping; tax is added at checkout.
type CartSummary struct {
	Items                 []models.CartItem `json:"items"`
	TotalItems            int               `json:"total_items"`
	Subtotal              decimal.Decimal   `json:"subtotal"`
	ShippingFee           decimal.Decimal   `json:"shipping_fee"`
	CartTotal             decimal.Decimal   `json:"cart_total"`
	FreeShippingRemaining decimal.Decimal   `json:"free_shipping_remaining"`
}

// CartService manages shopping carts.
type CartService struct {
	store      repository.CartStore
	calculator *OrderAmountCalculator
	logger     *logging.Logger
}

// NewCartService creates a new cart service.
func NewCartService(store repository.CartStore, calculator *OrderAmountCalculator, logger *logging.Logger) *CartService {
	return &CartService{
		store:      store,
		calculator: calculator,
		logger:     logger,
	}
}

// GetCart returns the user's cart, empty if none is stored.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, userID)
}

// AddItem merges item into the cart. Adding an existing product, size and
// colour combination increases its quantity.
func (s *CartService) AddItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := ValidateCartItem(&item); err != nil {
		return nil, err
	}

	cart, err := s.store.Update(ctx, userID, func(cart *models.Cart) error {
		cart.Add(item)
		for _, line := range cart.Items {
			if line.Key() == item.Key() && line.Quantity > maxQuantityPerItem {
				return apperrors.NewValidationError("quantity", "quantity too large")
			}
		}
		if len(cart.Items) > maxItemsPerOrder {
			return apperrors.NewValidationError("items", "too many items in cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item added", logging.Fields{
		"user_id":    userID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
	return cart, nil
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, key models.CartItemKey, quantity int) (*models.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if quantity > maxQuantityPerItem {
		return nil, apperrors.NewValidationError("quantity", "quantity too large")
	}

	return s.store.Update(ctx, userID, func(cart *models.Cart) error {
		if !cart.SetQuantity(key, quantity) {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// RemoveItem drops one line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, key models.CartItemKey) (*models.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	return s.store.Update(ctx, userID, func(cart *models.Cart) error {
		if !cart.Remove(key) {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.store.Delete(ctx, userID)
}

// Summary prices the cart without tax.
func (s *CartService) Summary(ctx context.Context, userID string) (*CartSummary, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()
	amounts := s.calculator.Compose(subtotal, decimal.Zero).Rounded()

	return &CartSummary{
		Items:                 cart.Items,
		TotalItems:            cart.TotalItems(),
		Subtotal:              amounts.Subtotal,
		ShippingFee:           amounts.ShippingFee,
		CartTotal:             amounts.CartTotal,
		FreeShippingRemaining: RoundMoney(s.calculator.Shipping().RemainingForFree(subtotal)),
	}, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return apperrors.NewValidationError("user_id", "user ID is required")
	}
	return nil
}
