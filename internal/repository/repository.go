package repository

import (
	"context"
	"errors"

	"github.com/menswear-india/storefront-service/internal/models"
)

// ErrDuplicateOrderNumber is returned when an order number collides with an
// existing row.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// OrderRepository persists orders. Amount columns are written by Create only.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, notes string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	SetPaymentID(ctx context.Context, id, paymentID string) error
	SetTrackingNumber(ctx context.Context, id, trackingNumber string) (*models.Order, error)
	List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Order, int, error)
}

// OrderCache defines caching operations for orders.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
	GetByUserID(ctx context.Context, userID string) ([]*models.Order, error)
	SetByUserID(ctx context.Context, userID string, orders []*models.Order) error
	InvalidateByUserID(ctx context.Context, userID string) error
}

// TaxSettingsRepository stores the GST rate table.
type TaxSettingsRepository interface {
	ListTaxSettings(ctx context.Context) ([]*models.TaxSetting, error)
	GetTaxSetting(ctx context.Context, name string) (*models.TaxSetting, error)
	UpdateTaxSetting(ctx context.Context, name string, update *models.UpdateTaxSettingRequest) (*models.TaxSetting, error)
	SeedTaxSettings(ctx context.Context, settings []*models.TaxSetting) error
	MigrateLegacyTaxSettings(ctx context.Context) (int, error)
}

// CartStore keeps shopping carts between requests.
type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Update(ctx context.Context, userID string, fn func(cart *models.Cart) error) (*models.Cart, error)
	Delete(ctx context.Context, userID string) error
}

var (
	_ OrderRepository       = (*PostgresOrderRepository)(nil)
	_ OrderCache            = (*RedisOrderCache)(nil)
	_ TaxSettingsRepository = (*PostgresTaxSettingsRepository)(nil)
	_ TaxSettingsRepository = (*MemoryTaxSettingsRepository)(nil)
	_ CartStore             = (*RedisCartStore)(nil)
)
