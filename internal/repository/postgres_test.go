package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

var orderColumnNames = []string{
	"id", "order_number", "user_id", "status", "payment_status", "payment_method", "payment_id",
	"tax_category", "gst_label", "subtotal", "gst_rate", "gst_amount", "shipping_amount", "total_amount",
	"items", "shipping_address", "tracking_number", "notes",
	"created_at", "updated_at", "shipped_at", "delivered_at",
}

func newMockRepo(t *testing.T) (*PostgresOrderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresOrderRepository(db, logging.NewNopLogger()), mock
}

func testOrder() *models.Order {
	return &models.Order{
		UserID:        "user_42",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: "upi",
		TaxCategory:   "interstate",
		GSTLabel:      "IGST",
		Subtotal:      decimal.NewFromInt(1000),
		GSTRate:       decimal.NewFromInt(12),
		GSTAmount:     decimal.NewFromInt(120),
		TotalAmount:   decimal.NewFromInt(1120),
		Items: []models.OrderItem{
			{ProductID: "shirt-oxford", ProductName: "Oxford Shirt", Quantity: 1, Price: decimal.NewFromInt(1000), Size: "M"},
		},
		ShippingAddress: models.Address{
			Name:    "Ravi Kumar",
			Address: "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Country: "India",
			Pincode: "560001",
		},
	}
}

func orderRow(t *testing.T, id string, status models.OrderStatus) *sqlmock.Rows {
	t.Helper()
	o := testOrder()
	items, err := json.Marshal(o.Items)
	require.NoError(t, err)
	addr, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	return sqlmock.NewRows(orderColumnNames).AddRow(
		id, "ORD-01HQ", o.UserID, string(status), "pending", "upi", nil,
		"interstate", "IGST", "1000.00", "12.00", "120.00", "0.00", "1120.00",
		items, addr, nil, nil,
		now, now, nil, nil,
	)
}

func TestPostgresOrderRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	args := make([]sqlmock.Argument, 19)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(toDriverArgs(args)...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	order := testOrder()
	err := repo.Create(context.Background(), order)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.False(t, order.CreatedAt.IsZero())
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOrderRepository_CreateDuplicateNumber(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Create(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
}

func TestPostgresOrderRepository_CreateFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), testOrder())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateOrderNumber)
}

func TestPostgresOrderRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT .* FROM orders WHERE id = \$1`).
		WithArgs("ord-1").
		WillReturnRows(orderRow(t, "ord-1", models.OrderStatusPending))

	order, err := repo.GetByID(context.Background(), "ord-1")
	require.NoError(t, err)

	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, order.GSTAmount.Equal(decimal.NewFromInt(120)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1120)))
	assert.Equal(t, "Karnataka", order.ShippingAddress.State)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "shirt-oxford", order.Items[0].ProductID)
	assert.Empty(t, order.PaymentID)
	assert.Nil(t, order.ShippedAt)
}

func TestPostgresOrderRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT .* FROM orders WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresOrderRepository_UpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE orders").
		WithArgs("ord-1", "shipped", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ord-1"))
	mock.ExpectQuery(`(?s)SELECT .* FROM orders WHERE id = \$1`).
		WithArgs("ord-1").
		WillReturnRows(orderRow(t, "ord-1", models.OrderStatusShipped))

	order, err := repo.UpdateStatus(context.Background(), "ord-1", models.OrderStatusShipped, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOrderRepository_UpdateStatusNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE orders").WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "missing", models.OrderStatusConfirmed, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresOrderRepository_UpdatePaymentStatusNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE orders SET payment_status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePaymentStatus(context.Background(), "missing", models.PaymentStatusPaid)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresOrderRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	status := models.OrderStatusPending

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE user_id = \$1 AND status = \$2`).
		WithArgs("user_42", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)SELECT .* FROM orders WHERE user_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("user_42", "pending", 20, 0).
		WillReturnRows(orderRow(t, "ord-1", models.OrderStatusPending))

	orders, total, err := repo.List(context.Background(), &models.OrderListFilter{
		UserID: "user_42",
		Status: &status,
		Limit:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOrderRepository_ListUnfiltered(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)SELECT .* FROM orders ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 30).
		WillReturnRows(sqlmock.NewRows(orderColumnNames))

	orders, total, err := repo.List(context.Background(), &models.OrderListFilter{Limit: 10, Offset: 30})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
}

func TestNewOrderNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := NewOrderNumber()
		require.True(t, strings.HasPrefix(n, "ORD-"), n)
		assert.Len(t, n, len("ORD-")+26)
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}

func toDriverArgs(args []sqlmock.Argument) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func BenchmarkNewOrderNumber(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewOrderNumber()
	}
}
