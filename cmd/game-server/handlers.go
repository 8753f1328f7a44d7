package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/cart"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/catalog"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/dispatch"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/httpx"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/inventory"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/player"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/scheduler"
)

type deps struct {
	carts      *cart.Registry
	goods      catalog.Repository
	players    *player.Service
	orders     *order.Service
	dispatches *dispatch.Service
	inv        inventory.Repository
	sched      *scheduler.Scheduler
}

func registerRoutes(r *gin.Engine, d *deps) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.GET("/stores/:storeId/goods", listGoodsHandler(d.goods))

	r.GET("/carts/:storeId", getCartHandler(d.carts))
	r.DELETE("/carts/:storeId", clearCartHandler(d.carts))
	r.POST("/carts/:storeId/items", addCartItemHandler(d.carts, d.goods))
	r.DELETE("/carts/:storeId/items/:itemId", removeCartItemHandler(d.carts))
	r.POST("/carts/:storeId/items/:itemId/increase", bumpCartItemHandler(d.carts, +1))
	r.POST("/carts/:storeId/items/:itemId/decrease", bumpCartItemHandler(d.carts, -1))

	r.POST("/orders", submitOrderHandler(d.carts, d.orders))
	r.GET("/orders", listOrdersHandler(d.orders))
	r.GET("/orders/:id", getOrderHandler(d.orders))
	r.POST("/orders/:id/decision", managerDecideHandler(d.orders, d.dispatches))

	r.GET("/dispatches/:id", getDispatchHandler(d.dispatches))
	r.POST("/dispatches/:id/decision", courierDecideHandler(d.dispatches))

	r.GET("/inventory", listInventoryHandler(d.inv))

	r.POST("/admin/players", createPlayerHandler(d.players))
	r.GET("/admin/players/:id", getPlayerHandler(d.players))
	r.DELETE("/admin/players/:id", deletePlayerHandler(d.players))
	r.POST("/admin/scheduler/tick", tickHandler(d.sched))
}

// httpError maps domain sentinels onto status codes. Guard failures are 409:
// the caller re-reads current state and retries or gives up.
func httpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrBuyerNotFound),
		errors.Is(err, dispatch.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, player.ErrNotFound),
		errors.Is(err, cart.ErrLineMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrAlreadyResolved),
		errors.Is(err, dispatch.ErrInvalidTransition),
		errors.Is(err, player.ErrAlreadyExist):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrBadDeliveryType),
		errors.Is(err, order.ErrBadDecision),
		errors.Is(err, dispatch.ErrBadDecision),
		errors.Is(err, dispatch.ErrNotDeliveryOrder),
		errors.Is(err, dispatch.ErrOrderNotApproved),
		errors.Is(err, player.ErrBadRole),
		errors.Is(err, player.ErrBadUsername),
		errors.Is(err, player.ErrWeakPassword),
		errors.Is(err, cart.ErrBadQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "dependency unavailable"})
	}
}

func listGoodsHandler(goods catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := goods.List(c.Request.Context(), catalog.Query{
			StoreID: c.Param("storeId"),
			Q:       c.Query("q"),
		})
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

type addCartItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

func addCartItemHandler(carts *cart.Registry, goods catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		storeID := c.Param("storeId")

		g, err := goods.GetByID(c.Request.Context(), req.ItemID)
		if err != nil {
			httpError(c, err)
			return
		}
		if g.StoreID != storeID {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not sold by this store"})
			return
		}

		sess := carts.Session(actor)
		adjusted, err := sess.Add(storeID, cart.Line{
			ItemID:    g.ID,
			Name:      g.Name,
			UnitPrice: g.Price,
			Quantity:  req.Quantity,
		})
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"lines":    sess.Lines(storeID),
			"total":    sess.Total(storeID).StringFixed(2),
			"adjusted": adjusted,
		})
	}
}

func getCartHandler(carts *cart.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		storeID := c.Param("storeId")
		sess := carts.Session(actor)
		c.JSON(http.StatusOK, gin.H{
			"lines": sess.Lines(storeID),
			"total": sess.Total(storeID).StringFixed(2),
		})
	}
}

func clearCartHandler(carts *cart.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		carts.Session(actor).Clear(c.Param("storeId"))
		c.Status(http.StatusNoContent)
	}
}

func removeCartItemHandler(carts *cart.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		storeID := c.Param("storeId")
		sess := carts.Session(actor)
		if err := sess.Remove(storeID, c.Param("itemId")); err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"lines": sess.Lines(storeID),
			"total": sess.Total(storeID).StringFixed(2),
		})
	}
}

func bumpCartItemHandler(carts *cart.Registry, delta int) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		storeID := c.Param("storeId")
		sess := carts.Session(actor)

		var qty int
		var err error
		if delta > 0 {
			qty, err = sess.Increase(storeID, c.Param("itemId"))
		} else {
			qty, err = sess.Decrease(storeID, c.Param("itemId"))
		}
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"quantity": qty,
			"total":    sess.Total(storeID).StringFixed(2),
		})
	}
}

type submitOrderRequest struct {
	StoreID      string `json:"store_id"`
	DeliveryType string `json:"delivery_type"`
}

func submitOrderHandler(carts *cart.Registry, orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		var req submitOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		sess := carts.Session(actor)
		o, err := orders.Submit(c.Request.Context(), actor, req.StoreID, req.DeliveryType, sess.Lines(req.StoreID))
		if err != nil {
			httpError(c, err)
			return
		}
		// The cart is discarded only once the order row exists.
		sess.Clear(req.StoreID)
		c.JSON(http.StatusCreated, o)
	}
}

func listOrdersHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		out, err := orders.ListByBuyer(c.Request.Context(), actor, 0, 0)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func getOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

func managerDecideHandler(orders *order.Service, dispatches *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		var req decisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		o, err := orders.Decide(c.Request.Context(), c.Param("id"), req.Decision, actor, req.Notes)
		if err != nil {
			httpError(c, err)
			return
		}

		resp := gin.H{"order": o}
		if o.Status == order.StatusApproved && o.DeliveryType == order.DeliveryDelivery {
			rec, _, derr := dispatches.OpenForOrder(c.Request.Context(), o)
			if derr != nil {
				// The sweep re-opens missing dispatch records next tick.
				c.JSON(http.StatusOK, resp)
				return
			}
			resp["dispatch"] = rec
		}
		c.JSON(http.StatusOK, resp)
	}
}

func getDispatchHandler(dispatches *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := dispatches.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func courierDecideHandler(dispatches *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := httpx.ActorID(c); !ok {
			return
		}
		var req decisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		rec, err := dispatches.CourierDecide(c.Request.Context(), c.Param("id"), req.Decision)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func listInventoryHandler(inv inventory.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := httpx.ActorID(c)
		if !ok {
			return
		}
		out, err := inv.ListByUser(c.Request.Context(), actor)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

type createPlayerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func createPlayerHandler(players *player.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPlayerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		p, err := players.Register(c.Request.Context(), req.Username, req.Email, req.Role, req.Password)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func getPlayerHandler(players *player.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := players.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func deletePlayerHandler(players *player.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := players.Remove(c.Request.Context(), c.Param("id")); err != nil {
			httpError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func tickHandler(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, sched.Tick(c.Request.Context()))
	}
}
