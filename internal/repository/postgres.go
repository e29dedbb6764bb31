package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

const uniqueViolation = "23505"

const orderColumns = `
	id, order_number, user_id, status, payment_status, payment_method, payment_id,
	tax_category, gst_label, subtotal, gst_rate, gst_amount, shipping_amount, total_amount,
	items, shipping_address, tracking_number, notes,
	created_at, updated_at, shipped_at, delivered_at`

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logging.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// GetByID retrieves an order by its unique identifier.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	return order, nil
}

// GetByOrderNumber retrieves an order by its customer-facing number.
func (r *PostgresOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Create inserts a fully priced order. ID, order number and timestamps are
// filled in when empty.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.logger.Debug("Creating new order", logging.Fields{"user_id": order.UserID})

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, order_number, user_id, status, payment_status, payment_method, payment_id,
			tax_category, gst_label, subtotal, gst_rate, gst_amount, shipping_amount, total_amount,
			items, shipping_address, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		nullString(order.PaymentMethod),
		nullString(order.PaymentID),
		order.TaxCategory,
		order.GSTLabel,
		order.Subtotal,
		order.GSTRate,
		order.GSTAmount,
		order.ShippingAmount,
		order.TotalAmount,
		itemsJSON,
		shippingJSON,
		nullString(order.Notes),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateOrderNumber
		}
		r.logger.Error("Failed to create order", logging.Fields{
			"user_id": order.UserID,
			"error":   err.Error(),
		})
		return err
	}

	r.logger.Info("Order created successfully", logging.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total":        order.TotalAmount.StringFixed(2),
	})

	return nil
}

// UpdateStatus moves an order to a new status. Amount columns are untouched.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, notes string) (*models.Order, error) {
	r.logger.Debug("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})

	now := time.Now().UTC()

	var shippedAt, deliveredAt *time.Time
	switch status {
	case models.OrderStatusShipped:
		shippedAt = &now
	case models.OrderStatusDelivered:
		deliveredAt = &now
	}

	query := `
		UPDATE orders
		SET status = $2, notes = COALESCE($3, notes), updated_at = $4,
		    shipped_at = COALESCE($5, shipped_at),
		    delivered_at = COALESCE($6, delivered_at)
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRowContext(ctx, query, id, status, nullString(notes), now, shippedAt, deliveredAt).Scan(&returnedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update order status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})

	return r.GetByID(ctx, id)
}

// UpdatePaymentStatus records the payment side of an order.
func (r *PostgresOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	query := `UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetPaymentID associates a gateway payment with an order.
func (r *PostgresOrderRepository) SetPaymentID(ctx context.Context, id, paymentID string) error {
	r.logger.Debug("Setting payment ID", logging.Fields{
		"order_id":   id,
		"payment_id": paymentID,
	})

	query := `UPDATE orders SET payment_id = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, paymentID, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetTrackingNumber stores the carrier tracking number and marks the order shipped.
func (r *PostgresOrderRepository) SetTrackingNumber(ctx context.Context, id, trackingNumber string) (*models.Order, error) {
	now := time.Now().UTC()

	query := `
		UPDATE orders
		SET tracking_number = $2, status = $3, updated_at = $4,
		    shipped_at = COALESCE(shipped_at, $4)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, trackingNumber, models.OrderStatusShipped, now)
	if err != nil {
		r.logger.Error("Failed to set tracking number", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// List retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.logger.Debug("Listing orders", logging.Fields{
		"user_id": filter.UserID,
		"status":  filter.Status,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	var conditions []string
	args := make([]interface{}, 0, 4)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	selectQuery := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// GetByUserID retrieves a page of orders for a user.
func (r *PostgresOrderRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Order, int, error) {
	return r.List(ctx, &models.OrderListFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var itemsJSON, shippingJSON []byte
	var shippedAt, deliveredAt sql.NullTime
	var paymentMethod, paymentID, trackingNumber, notes sql.NullString

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&paymentMethod,
		&paymentID,
		&order.TaxCategory,
		&order.GSTLabel,
		&order.Subtotal,
		&order.GSTRate,
		&order.GSTAmount,
		&order.ShippingAmount,
		&order.TotalAmount,
		&itemsJSON,
		&shippingJSON,
		&trackingNumber,
		&notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&shippedAt,
		&deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
		return nil, err
	}

	order.PaymentMethod = paymentMethod.String
	order.PaymentID = paymentID.String
	order.TrackingNumber = trackingNumber.String
	order.Notes = notes.String
	if shippedAt.Valid {
		order.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}

	return &order, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NewOrderNumber returns a unique, time-ordered, human-readable order number.
func NewOrderNumber() string {
	return "ORD-" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}
