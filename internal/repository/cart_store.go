package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

const (
	cartKeyPrefix     = "cart:"
	defaultCartTTL    = 7 * 24 * time.Hour
	maxCartTxAttempts = 5
)

// ErrCartContention is returned when a cart keeps changing underneath an update.
var ErrCartContention = errors.New("cart was modified concurrently, try again")

// RedisCartStore keeps one JSON cart per user in Redis.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisCartStore creates a cart store. Carts expire ttl after their last change.
func NewRedisCartStore(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisCartStore {
	if ttl == 0 {
		ttl = defaultCartTTL
	}
	return &RedisCartStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the user's cart, or an empty cart when none is stored.
func (s *RedisCartStore) Get(ctx context.Context, userID string) (*models.Cart, error) {
	return s.read(ctx, s.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisCartStore) read(ctx context.Context, g getter, userID string) (*models.Cart, error) {
	data, err := g.Get(ctx, cartKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// Update applies fn to the stored cart inside an optimistic transaction.
// Concurrent writers to the same cart are retried a few times before giving up.
func (s *RedisCartStore) Update(ctx context.Context, userID string, fn func(cart *models.Cart) error) (*models.Cart, error) {
	key := cartKeyPrefix + userID
	var result *models.Cart

	txf := func(tx *redis.Tx) error {
		cart, err := s.read(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}
		cart.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(cart)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(cart.Items) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			result = cart
		}
		return err
	}

	for attempt := 0; attempt < maxCartTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		s.logger.Debug("Cart update conflict, retrying", logging.Fields{
			"user_id": userID,
			"attempt": attempt + 1,
		})
	}

	return nil, ErrCartContention
}

// Delete removes the user's cart.
func (s *RedisCartStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, cartKeyPrefix+userID).Err()
}
