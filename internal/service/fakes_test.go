package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/repository"
)

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (r *fakeOrderRepo) copyOf(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return &c
}

func (r *fakeOrderRepo) put(o *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = r.copyOf(o)
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicateOrderNumber
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = r.copyOf(order)
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.copyOf(o), nil
}

func (r *fakeOrderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			return r.copyOf(o), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, notes string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	o.Status = status
	if notes != "" {
		o.Notes = notes
	}
	o.UpdatedAt = time.Now().UTC()
	return r.copyOf(o), nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (r *fakeOrderRepo) SetPaymentID(ctx context.Context, id, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.PaymentID = paymentID
	return nil
}

func (r *fakeOrderRepo) SetTrackingNumber(ctx context.Context, id, trackingNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	now := time.Now().UTC()
	o.TrackingNumber = trackingNumber
	o.Status = models.OrderStatusShipped
	o.ShippedAt = &now
	return r.copyOf(o), nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Order
	for _, o := range r.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		matched = append(matched, r.copyOf(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Order{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *fakeOrderRepo) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Order, int, error) {
	return r.List(ctx, &models.OrderListFilter{UserID: userID, Limit: limit, Offset: offset})
}

type fakeOrderCache struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	users  map[string][]*models.Order
}

func newFakeOrderCache() *fakeOrderCache {
	return &fakeOrderCache{
		orders: make(map[string]*models.Order),
		users:  make(map[string][]*models.Order),
	}
}

func (c *fakeOrderCache) Get(ctx context.Context, id string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orders[id], nil
}

func (c *fakeOrderCache) Set(ctx context.Context, order *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := *order
	c.orders[order.ID] = &o
	return nil
}

func (c *fakeOrderCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	return nil
}

func (c *fakeOrderCache) GetByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users[userID], nil
}

func (c *fakeOrderCache) SetByUserID(ctx context.Context, userID string, orders []*models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID] = orders
	return nil
}

func (c *fakeOrderCache) InvalidateByUserID(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, userID)
	return nil
}

func (c *fakeOrderCache) cached(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.orders[id]
	return ok
}

type fakeCartStore struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[string]models.Cart)}
}

func (s *fakeCartStore) load(userID string) *models.Cart {
	cart, ok := s.carts[userID]
	if !ok {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	cart.Items = append([]models.CartItem{}, cart.Items...)
	return &cart
}

func (s *fakeCartStore) Get(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID), nil
}

func (s *fakeCartStore) Update(ctx context.Context, userID string, fn func(cart *models.Cart) error) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load(userID)
	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = time.Now().UTC()
	if len(cart.Items) == 0 {
		delete(s.carts, userID)
	} else {
		s.carts[userID] = *cart
	}
	return cart, nil
}

func (s *fakeCartStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

var errStoreDown = errors.New("connection refused")

// failingSettings is a rate-table store that cannot be read.
type failingSettings struct{}

func (failingSettings) ListTaxSettings(ctx context.Context) ([]*models.TaxSetting, error) {
	return nil, errStoreDown
}

func (failingSettings) GetTaxSetting(ctx context.Context, name string) (*models.TaxSetting, error) {
	return nil, errStoreDown
}

func (failingSettings) UpdateTaxSetting(ctx context.Context, name string, update *models.UpdateTaxSettingRequest) (*models.TaxSetting, error) {
	return nil, errStoreDown
}

func (failingSettings) SeedTaxSettings(ctx context.Context, settings []*models.TaxSetting) error {
	return errStoreDown
}

func (failingSettings) MigrateLegacyTaxSettings(ctx context.Context) (int, error) {
	return 0, errStoreDown
}
