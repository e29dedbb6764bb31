package service

import (
	"context"
	"fmt"

	"github.com/menswear-india/storefront-service/internal/clients"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/models"
)

// orderNotifier sends customer notifications for order lifecycle events.
// Failures are logged and never reach the caller.
type orderNotifier struct {
	client clients.NotificationSender
	logger *logging.Logger
}

func (n *orderNotifier) orderConfirmed(ctx context.Context, order *models.Order) {
	data := map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"gst_label":    order.GSTLabel,
		"gst_amount":   order.GSTAmount.StringFixed(2),
		"total":        order.TotalAmount.StringFixed(2) + " " + clients.Currency,
	}

	n.send(ctx, order, &clients.Notification{
		UserID:  order.UserID,
		Type:    clients.NotificationOrderConfirmed,
		Channel: "in_app",
		Title:   "Order Confirmation",
		Message: fmt.Sprintf("Your order %s has been received.", order.OrderNumber),
		Data:    data,
	})
}

func (n *orderNotifier) orderShipped(ctx context.Context, order *models.Order) {
	n.send(ctx, order, &clients.Notification{
		UserID:  order.UserID,
		Type:    clients.NotificationOrderShipped,
		Channel: "in_app",
		Title:   "Order Shipped",
		Message: fmt.Sprintf("Your order %s has been shipped.", order.OrderNumber),
		Data: map[string]interface{}{
			"order_number":    order.OrderNumber,
			"tracking_number": order.TrackingNumber,
		},
	})
}

func (n *orderNotifier) orderCancelled(ctx context.Context, order *models.Order, reason string) {
	n.send(ctx, order, &clients.Notification{
		UserID:  order.UserID,
		Type:    clients.NotificationOrderCancelled,
		Channel: "in_app",
		Title:   "Order Cancelled",
		Message: fmt.Sprintf("Your order %s has been cancelled.", order.OrderNumber),
		Data: map[string]interface{}{
			"order_number": order.OrderNumber,
			"reason":       reason,
		},
	})
}

// send delivers the in-app notification and mirrors it to email and SMS
// when the shipping address carries them.
func (n *orderNotifier) send(ctx context.Context, order *models.Order, notification *clients.Notification) {
	if err := n.client.SendNotification(ctx, notification); err != nil {
		n.logger.Error("Failed to send notification", logging.Fields{
			"order_id": order.ID,
			"type":     notification.Type,
			"error":    err.Error(),
		})
	}

	if email := order.ShippingAddress.Email; email != "" {
		err := n.client.SendEmail(ctx, &clients.SendEmailRequest{
			To:       email,
			Template: notification.Type,
			Data:     notification.Data,
		})
		if err != nil {
			n.logger.Error("Failed to send email", logging.Fields{
				"order_id": order.ID,
				"type":     notification.Type,
				"error":    err.Error(),
			})
		}
	}

	if phone := order.ShippingAddress.Phone; phone != "" {
		err := n.client.SendSMS(ctx, &clients.SendSMSRequest{
			To:       phone,
			Template: notification.Type,
			Data:     notification.Data,
		})
		if err != nil {
			n.logger.Error("Failed to send SMS", logging.Fields{
				"order_id": order.ID,
				"type":     notification.Type,
				"error":    err.Error(),
			})
		}
	}
}
