package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/menswear-india/storefront-service/internal/apperrors"
	"github.com/menswear-india/storefront-service/internal/models"
	"github.com/menswear-india/storefront-service/internal/tax"
)

const (
	maxItemsPerOrder   = 50
	maxQuantityPerItem = 99
	maxNotesLength     = 1000
	maxReasonLength    = 500
	maxTrackingLength  = 64
	defaultListLimit   = 20
	maxListLimit       = 100
)

var (
	pincodePattern  = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,13}$`)
	trackingPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

var paymentMethods = map[string]bool{
	"razorpay":   true,
	"upi":        true,
	"card":       true,
	"netbanking": true,
	"wallet":     true,
}

// ValidatePlaceOrderRequest validates a checkout submission. Address problems
// are reported as *apperrors.InvalidAddressError.
func ValidatePlaceOrderRequest(req *PlaceOrderRequest) error {
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id", "user ID is required")
	}

	if len(req.Items) > maxItemsPerOrder {
		return apperrors.NewValidationError("items", "too many items in one order")
	}

	// Validate each item
	for i := range req.Items {
		if err := validateOrderItem(&req.Items[i]); err != nil {
			return err
		}
	}

	if !paymentMethods[strings.ToLower(req.PaymentMethod)] {
		return apperrors.NewValidationError("payment_method", "unsupported payment method")
	}

	if len(req.Notes) > maxNotesLength {
		return apperrors.NewValidationError("notes", "notes too long (max 1000 characters)")
	}

	return ValidateShippingAddress(&req.ShippingAddress)
}

// ValidateQuoteRequest validates a price quote request. Either a subtotal or
// a list of items must be given.
func ValidateQuoteRequest(req *QuoteRequest) error {
	if req.Subtotal == nil && len(req.Items) == 0 {
		return apperrors.NewValidationError("subtotal", "subtotal or items are required")
	}
	if req.Subtotal != nil && req.Subtotal.IsNegative() {
		return apperrors.NewValidationError("subtotal", "subtotal cannot be negative")
	}
	for i := range req.Items {
		if err := validateOrderItem(&req.Items[i]); err != nil {
			return err
		}
	}
	if strings.TrimSpace(req.Country) == "" {
		return apperrors.NewInvalidAddressError("country", "country is required")
	}
	return nil
}

func validateOrderItem(item *models.OrderItem) error {
	if item.ProductID == "" {
		return apperrors.NewValidationError("items", "product ID is required for item")
	}

	if item.Quantity <= 0 {
		return apperrors.NewValidationError("items", "quantity must be positive")
	}

	if item.Quantity > maxQuantityPerItem {
		return apperrors.NewValidationError("items", "quantity too large")
	}

	if item.Price.IsNegative() {
		return apperrors.NewValidationError("items", "price cannot be negative")
	}

	return nil
}

// ValidateShippingAddress checks the fields needed to deliver and to tax an
// order. Domestic addresses need a six digit pincode.
func ValidateShippingAddress(addr *models.Address) error {
	if strings.TrimSpace(addr.Name) == "" {
		return apperrors.NewInvalidAddressError("name", "name is required")
	}

	if strings.TrimSpace(addr.Address) == "" {
		return apperrors.NewInvalidAddressError("address", "street address is required")
	}

	if strings.TrimSpace(addr.City) == "" {
		return apperrors.NewInvalidAddressError("city", "city is required")
	}

	if strings.TrimSpace(addr.Country) == "" {
		return apperrors.NewInvalidAddressError("country", "country is required")
	}

	if addr.Phone != "" && !phonePattern.MatchString(strings.ReplaceAll(addr.Phone, " ", "")) {
		return apperrors.NewInvalidAddressError("phone", "phone number is invalid")
	}

	if addr.Email != "" && !strings.Contains(addr.Email, "@") {
		return apperrors.NewInvalidAddressError("email", "email is invalid")
	}

	if strings.EqualFold(strings.TrimSpace(addr.Country), tax.DomesticCountry) {
		if strings.TrimSpace(addr.State) == "" {
			return apperrors.NewInvalidAddressError("state", "state is required")
		}
		if !pincodePattern.MatchString(strings.TrimSpace(addr.Pincode)) {
			return apperrors.NewInvalidAddressError("pincode", "pincode must be 6 digits")
		}
	}

	return nil
}

// ParseShippingDestination turns a validated address into a tax destination.
func ParseShippingDestination(resolver *tax.Resolver, addr *models.Address) (tax.Destination, error) {
	dest, err := resolver.ParseDestination(addr.State, addr.Country)
	switch {
	case err == nil:
		return dest, nil
	case errors.Is(err, tax.ErrMissingCountry):
		return nil, apperrors.NewInvalidAddressError("country", err.Error())
	case errors.Is(err, tax.ErrMissingState), errors.Is(err, tax.ErrUnknownState):
		return nil, apperrors.NewInvalidAddressError("state", err.Error())
	}
	return nil, err
}

// ValidateUpdateOrderStatusRequest validates a status update request.
func ValidateUpdateOrderStatusRequest(req *models.UpdateOrderStatusRequest) error {
	if req.Status == "" {
		return apperrors.NewValidationError("status", "status is required")
	}

	if !req.Status.Valid() {
		return apperrors.NewValidationError("status", "invalid order status")
	}

	if len(req.Notes) > maxNotesLength {
		return apperrors.NewValidationError("notes", "notes too long (max 1000 characters)")
	}

	return nil
}

// ValidateOrderListFilter validates a list filter and applies paging defaults.
func ValidateOrderListFilter(filter *models.OrderListFilter) error {
	if filter.Limit < 0 {
		return apperrors.NewValidationError("limit", "limit cannot be negative")
	}

	if filter.Offset < 0 {
		return apperrors.NewValidationError("offset", "offset cannot be negative")
	}

	if filter.Status != nil && !filter.Status.Valid() {
		return apperrors.NewValidationError("status", "invalid order status")
	}

	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	return nil
}

// ValidateCancellationReason validates an order cancellation reason.
func ValidateCancellationReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperrors.NewValidationError("reason", "cancellation reason is required")
	}

	if len(reason) > maxReasonLength {
		return apperrors.NewValidationError("reason", "cancellation reason too long (max 500 characters)")
	}

	return nil
}

// ValidateTrackingNumber validates a carrier tracking number.
func ValidateTrackingNumber(trackingNumber string) error {
	if trackingNumber == "" {
		return apperrors.NewValidationError("tracking_number", "tracking number is required")
	}

	if len(trackingNumber) > maxTrackingLength || !trackingPattern.MatchString(trackingNumber) {
		return apperrors.NewValidationError("tracking_number", "tracking number is invalid")
	}

	return nil
}

// ValidateTaxPercentage checks a rate lies in [0, 100] and has at most two
// decimal places, the precision gst_settings stores.
func ValidateTaxPercentage(p *decimal.Decimal) error {
	if p == nil {
		return apperrors.NewValidationError("percentage", "percentage is required")
	}
	if !tax.ValidPercentage(*p) {
		return apperrors.NewValidationError("percentage", "percentage must be between 0 and 100")
	}
	if !p.Equal(p.Round(2)) {
		return apperrors.NewValidationError("percentage", "percentage allows at most 2 decimal places")
	}
	return nil
}

// ValidateCartItem validates an item being added to a cart.
func ValidateCartItem(item *models.CartItem) error {
	if item.ProductID == "" {
		return apperrors.NewValidationError("product_id", "product ID is required")
	}
	if item.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", "quantity must be positive")
	}
	if item.Quantity > maxQuantityPerItem {
		return apperrors.NewValidationError("quantity", "quantity too large")
	}
	if item.Price.IsNegative() {
		return apperrors.NewValidationError("price", "price cannot be negative")
	}
	return nil
}

// SanitizeOrderNotes escapes markup and trims notes to the stored maximum.
func SanitizeOrderNotes(notes string) string {
	notes = strings.ReplaceAll(notes, "<", "&lt;")
	notes = strings.ReplaceAll(notes, ">", "&gt;")
	notes = strings.ReplaceAll(notes, "\"", "&quot;")
	notes = strings.TrimSpace(notes)

	if len(notes) > maxNotesLength {
		notes = notes[:maxNotesLength]
	}

	return notes
}
