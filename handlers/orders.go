package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shop-service/internal/auth"
	"shop-service/internal/cart"
	"shop-service/internal/items"
	"shop-service/internal/orders"
	"shop-service/internal/stores/kafka"
	"shop-service/pkg/ctxmanage"
	"shop-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// VerifyCart checks out the caller's cart into an order. On success the
// response carries the order id, which is also usable to cancel later.
func (h *Handler) VerifyCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	orderId, err := h.engine.Verify(c.Request.Context(), userId)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrCartNotFound):
			slog.Error("cart not found", slog.String(logkey.TraceID, traceId), slog.String("UserID", userId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
		case errors.Is(err, orders.ErrEmptyCart):
			slog.Error("checkout on empty cart", slog.String(logkey.TraceID, traceId), slog.String("UserID", userId))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		case errors.Is(err, orders.ErrInsufficientStock):
			slog.Error("insufficient stock at checkout", slog.String(logkey.TraceID, traceId),
				slog.String("UserID", userId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock for one or more items"})
		case errors.Is(err, items.ErrItemNotFound):
			slog.Error("cart references missing item", slog.String(logkey.TraceID, traceId),
				slog.String("UserID", userId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		default:
			slog.Error("error verifying order", slog.String(logkey.TraceID, traceId),
				slog.String("UserID", userId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify order"})
		}
		return
	}

	// Publish the order-placed event without blocking the response. The
	// request context is about to be cancelled, so use a fresh one.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		order, err := h.oConf.GetOrder(ctx, userId, orderId)
		if err != nil {
			slog.Error("failed to load order for event", slog.String(logkey.ERROR, err.Error()))
			return
		}
		eventItems := make([]kafka.OrderEventItem, 0, len(order.Items))
		for _, item := range order.Items {
			eventItems = append(eventItems, kafka.OrderEventItem{ItemId: item.ItemID, Quantity: item.Quantity})
		}
		jsonData, err := json.Marshal(kafka.OrderPlacedEvent{
			OrderId:    order.ID,
			UserId:     order.UserID,
			TotalCents: order.TotalCents,
			Items:      eventItems,
			CreatedAt:  order.CreatedAt,
		})
		if err != nil {
			slog.Error("failed to marshal OrderPlacedEvent", slog.String(logkey.ERROR, err.Error()))
			return
		}
		if err := h.k.ProduceMessage(kafka.TopicOrderPlaced, []byte(order.ID), jsonData); err != nil {
			slog.Error("failed to produce order-placed event", slog.String(logkey.ERROR, err.Error()))
		}
	}()

	slog.Info("order verified", slog.String(logkey.TraceID, traceId),
		slog.String("OrderID", orderId), slog.String("UserID", userId))
	c.JSON(http.StatusOK, gin.H{
		"message":  "Order verified",
		"order_id": orderId,
		"note":     "You can use this ID to cancel the order anytime!",
	})
}

// CancelOrder reverses a previously verified order, restoring stock and
// flipping the order's status to cancelled.
func (h *Handler) CancelOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	orderId := c.Param("orderId")
	err := h.engine.Cancel(c.Request.Context(), userId, orderId)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			slog.Error("order not found", slog.String(logkey.TraceID, traceId),
				slog.String("OrderID", orderId), slog.String("UserID", userId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found in the cart"})
		case errors.Is(err, orders.ErrAlreadyCancelled):
			slog.Error("order already cancelled", slog.String(logkey.TraceID, traceId),
				slog.String("OrderID", orderId), slog.String("UserID", userId))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Order is already cancelled"})
		case errors.Is(err, items.ErrItemNotFound):
			slog.Error("order references missing item", slog.String(logkey.TraceID, traceId),
				slog.String("OrderID", orderId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		default:
			slog.Error("error cancelling order", slog.String(logkey.TraceID, traceId),
				slog.String("OrderID", orderId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		}
		return
	}

	// Publish the order-cancelled event without blocking the response.
	go func() {
		jsonData, err := json.Marshal(kafka.OrderCancelledEvent{
			OrderId:     orderId,
			UserId:      userId,
			CancelledAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to marshal OrderCancelledEvent", slog.String(logkey.ERROR, err.Error()))
			return
		}
		if err := h.k.ProduceMessage(kafka.TopicOrderCancelled, []byte(orderId), jsonData); err != nil {
			slog.Error("failed to produce order-cancelled event", slog.String(logkey.ERROR, err.Error()))
		}
	}()

	slog.Info("order cancelled", slog.String(logkey.TraceID, traceId),
		slog.String("OrderID", orderId), slog.String("UserID", userId))
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
}

// ListOrders returns the caller's order history.
func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.oConf.ListOrders(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}
