package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"shop-service/internal/auth"
	"shop-service/internal/cart"
	"shop-service/internal/items"
	"shop-service/pkg/ctxmanage"
	"shop-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// OrderItem adds a single unit of an item to the caller's cart. The stock
// gate runs first: a stocked-out item blocks the add with a client error
// instead of silently growing the cart.
func (h *Handler) OrderItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	itemId := c.Param("itemId")
	item, err := h.iConf.GetItemByID(c.Request.Context(), itemId)
	if err != nil {
		if errors.Is(err, items.ErrItemNotFound) {
			slog.Error("item not found", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		slog.Error("error in retrieving item", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch item"})
		return
	}

	if item.Stock < 1 {
		slog.Error("item is out of stock", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Item is out of stock"})
		return
	}

	userCart, err := h.cConf.GetOrCreateCart(c.Request.Context(), userId)
	if err != nil {
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	userCart.AddLine(itemId, 1)
	if err := h.cConf.SaveLines(c.Request.Context(), userCart); err != nil {
		slog.Error("error saving cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		return
	}

	slog.Info("item ordered and added to cart", slog.String(logkey.TraceID, traceId),
		slog.String("ItemID", itemId), slog.String("UserID", userId))
	c.JSON(http.StatusCreated, gin.H{"message": "Item ordered and added to the cart"})
}

// AddItemsToCart is the bulk add: every entry is merged into the cart in
// one request. No stock gate here; availability is settled at checkout.
func (h *Handler) AddItemsToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	var request struct {
		Items []struct {
			ItemID   string `json:"item_id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(request.Items) == 0 {
		slog.Error("empty items payload", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Items must not be empty"})
		return
	}
	for _, item := range request.Items {
		if item.ItemID == "" || item.Quantity <= 0 {
			slog.Error("invalid item id or quantity", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Item ID and quantity must be valid"})
			return
		}
	}

	userCart, err := h.cConf.GetOrCreateCart(c.Request.Context(), userId)
	if err != nil {
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	for _, item := range request.Items {
		userCart.AddLine(item.ItemID, item.Quantity)
	}
	if err := h.cConf.SaveLines(c.Request.Context(), userCart); err != nil {
		slog.Error("error saving cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}

	slog.Info("items added to cart", slog.String(logkey.TraceID, traceId),
		slog.Int("Count", len(request.Items)), slog.String("UserID", userId))
	c.JSON(http.StatusCreated, gin.H{"cart": userCart})
}

// GetCart returns the formatted cart: lines joined with current item
// details, the total bill and the buyer's shipping info.
func (h *Handler) GetCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	formatted, err := h.cConf.FormattedCart(c.Request.Context(), userId)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			slog.Error("cart not found", slog.String(logkey.TraceID, traceId), slog.String("UserID", userId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": formatted})
}

// RemoveOneUnit removes a single unit of the cart line identified by the
// order id in the path. A line at quantity one disappears entirely.
func (h *Handler) RemoveOneUnit(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	orderId := c.Param("orderId")
	userCart, err := h.cConf.GetCart(c.Request.Context(), userId)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			slog.Error("cart not found", slog.String(logkey.TraceID, traceId), slog.String("UserID", userId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	if !userCart.RemoveOneUnit(orderId) {
		slog.Error("order-line not found in cart", slog.String(logkey.TraceID, traceId), slog.String("OrderID", orderId))
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found in the cart"})
		return
	}

	if err := h.cConf.SaveLines(c.Request.Context(), userCart); err != nil {
		slog.Error("error saving cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quantity of item removed from the cart"})
}
