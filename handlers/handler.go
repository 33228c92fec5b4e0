package handlers

import (
	"log/slog"
	"net/http"
	"os"

	"shop-service/internal/auth"
	"shop-service/internal/cart"
	"shop-service/internal/items"
	"shop-service/internal/orders"
	"shop-service/internal/stores/kafka"
	"shop-service/internal/users"
	"shop-service/middleware"
	"shop-service/pkg/ctxmanage"
	"shop-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	consulapi "github.com/hashicorp/consul/api"
)

type Handler struct {
	uConf    *users.Conf
	iConf    *items.Conf
	cConf    *cart.Conf
	oConf    *orders.Conf
	engine   *orders.Engine
	k        *kafka.Conf
	client   *consulapi.Client
	keys     *auth.Keys
	validate *validator.Validate
}

func NewHandler(uConf *users.Conf, iConf *items.Conf, cConf *cart.Conf, oConf *orders.Conf,
	engine *orders.Engine, k *kafka.Conf, client *consulapi.Client, keys *auth.Keys) *Handler {
	return &Handler{
		uConf:    uConf,
		iConf:    iConf,
		cConf:    cConf,
		oConf:    oConf,
		engine:   engine,
		k:        k,
		client:   client,
		keys:     keys,
		validate: validator.New(),
	}
}

func API(keys *auth.Keys, client *consulapi.Client, uConf *users.Conf, iConf *items.Conf,
	cConf *cart.Conf, oConf *orders.Conf, engine *orders.Engine, kafkaConf *kafka.Conf) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}

	h := NewHandler(uConf, iConf, cConf, oConf, engine, kafkaConf, client, keys)

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", h.healthCheck)

	// Public endpoints: signup, login and the item catalog.
	r.POST("/users", h.Signup)
	r.POST("/users/login", h.Login)
	r.GET("/items", h.ListItems)
	r.GET("/items/:itemId", h.GetItem)

	// Cart and order endpoints require an authenticated user.
	v1 := r.Group("/")
	{
		v1.Use(m.Authentication())
		v1.POST("/items/:itemId/order", m.Authorize(h.OrderItem, auth.RoleUser))
		v1.POST("/cart", m.Authorize(h.AddItemsToCart, auth.RoleUser))
		v1.GET("/cart", m.Authorize(h.GetCart, auth.RoleUser))
		v1.DELETE("/cart/orders/:orderId", m.Authorize(h.RemoveOneUnit, auth.RoleUser))
		v1.PATCH("/cart/verify", m.Authorize(h.VerifyCart, auth.RoleUser))
		v1.PATCH("/cart/cancel/:orderId", m.Authorize(h.CancelOrder, auth.RoleUser))
		v1.GET("/orders", m.Authorize(h.ListOrders, auth.RoleUser))
	}

	// Item administration requires the admin role.
	admin := r.Group("/admin")
	{
		admin.Use(m.Authentication())
		admin.POST("/items", m.Authorize(h.CreateItem, auth.RoleAdmin))
		admin.PATCH("/items/:itemId", m.Authorize(h.UpdateItem, auth.RoleAdmin))
		admin.DELETE("/items/:itemId", m.Authorize(h.DeleteItem, auth.RoleAdmin))
	}

	return r
}

// healthCheck reports liveness, and the consul agent's reachability when a
// client is configured.
func (h *Handler) healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	response := gin.H{"status": "ok"}
	if h.client != nil {
		if _, err := h.client.Agent().Self(); err != nil {
			slog.Error("consul agent unreachable", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			response["consul"] = "unreachable"
		} else {
			response["consul"] = "ok"
		}
	}

	c.JSON(http.StatusOK, response)
}
