package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"shop-service/internal/items"
	"shop-service/pkg/ctxmanage"
	"shop-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func (h *Handler) ListItems(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.iConf.ListItems(c.Request.Context())
	if err != nil {
		slog.Error("error in fetching items", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (h *Handler) GetItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

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

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) CreateItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if c.Request.ContentLength > 5*1024 {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId), slog.Int64("Size Received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body too large."})
		return
	}

	var newItem items.NewItem
	if err := c.ShouldBindJSON(&newItem); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	if err := h.validate.Struct(newItem); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErrs[0].Field() + " failed " + vErrs[0].Tag() + " validation"})
			return
		}
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	item, err := h.iConf.InsertItem(c.Request.Context(), newItem)
	if err != nil {
		slog.Error("error in inserting the item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Item creation failed"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	itemId := c.Param("itemId")
	if itemId == "" {
		slog.Error("missing item id", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Item ID is required"})
		return
	}

	var update items.UpdateItem
	if err := c.ShouldBindJSON(&update); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	if err := h.validate.Struct(update); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid updates!"})
		return
	}

	item, err := h.iConf.UpdateItemInDB(c.Request.Context(), itemId, update)
	if err != nil {
		if errors.Is(err, items.ErrItemNotFound) {
			slog.Error("item not found", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		slog.Error("error in updating the item", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Item update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item updated successfully", "item": item})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	itemId := c.Param("itemId")
	err := h.iConf.DeleteItemFromDB(c.Request.Context(), itemId)
	if err != nil {
		if errors.Is(err, items.ErrItemNotFound) {
			slog.Error("item not found", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		slog.Error("error in deleting the item", slog.String(logkey.TraceID, traceId), slog.String("ItemID", itemId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Item deletion failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item successfully deleted"})
}
