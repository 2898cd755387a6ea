package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pharmacy/internal/domain"
	"pharmacy/internal/receipt"
	"pharmacy/internal/service"
)

type openSessionReq struct {
	OrderType domain.OrderType `json:"order_type" example:"Retail"`
}

// @Summary Open order session
// @Description Starts a new cart. order_type defaults to Retail
// @Tags sessions
// @Accept json
// @Produce json
// @Param input body openSessionReq false "Session"
// @Success 201 {object} service.SessionView
// @Failure 400 {object} map[string]string
// @Router /sessions [post]
func (s *Server) openSession(c *gin.Context) {
	var req openSessionReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	view, err := s.sessions.Open(req.OrderType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// @Summary Get order session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} service.SessionView
// @Failure 404 {object} map[string]string
// @Router /sessions/{id} [get]
func (s *Server) getSession(c *gin.Context) {
	view, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Close order session
// @Description Discards the session and its uncommitted cart
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /sessions/{id} [delete]
func (s *Server) closeSession(c *gin.Context) {
	if err := s.sessions.Close(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addItemReq struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
}

// @Summary Add line item
// @Description Freezes the current unit price. The same medicine added twice yields two line items
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param input body addItemReq true "Line item"
// @Success 200 {object} service.SessionView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /sessions/{id}/items [post]
func (s *Server) addItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	view, err := s.sessions.AddItem(c, c.Param("id"), req.MedicineID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Remove line item
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param index path int true "Zero-based line item index"
// @Success 200 {object} service.SessionView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/items/{index} [delete]
func (s *Server) removeItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	view, err := s.sessions.RemoveItem(c.Param("id"), index)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Reset cart
// @Description Clears all line items. An optional order_type applies to the emptied cart
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param input body openSessionReq false "New order type"
// @Success 200 {object} service.SessionView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/reset [post]
func (s *Server) resetSession(c *gin.Context) {
	var req openSessionReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	view, err := s.sessions.Reset(c.Param("id"), req.OrderType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type commitReq struct {
	CustomerID int64            `json:"customer_id"`
	EmployeeID int64            `json:"employee_id"`
	OrderType  domain.OrderType `json:"order_type,omitempty" example:"Retail"`
}

type commitResp struct {
	Order   *domain.Order       `json:"order"`
	Receipt receipt.Receipt     `json:"receipt"`
	Session service.SessionView `json:"session"`
}

// @Summary Commit cart as an order
// @Description Persists the order, decrements stock and credits loyalty points all-or-nothing
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param input body commitReq true "Commit"
// @Success 201 {object} commitResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sessions/{id}/commit [post]
func (s *Server) commitSession(c *gin.Context) {
	var req commitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	order, view, err := s.sessions.Commit(c, c.Param("id"), req.CustomerID, req.EmployeeID, req.OrderType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, commitResp{Order: order, Receipt: s.orders.ProjectReceipt(*order), Session: view})
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.orders.GetOrder(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Order receipt
// @Tags orders
// @Produce json
// @Produce plain
// @Param id path int true "Order ID"
// @Param format query string false "json (default) or text"
// @Success 200 {object} receipt.Receipt
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/receipt [get]
func (s *Server) getReceipt(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	r, err := s.orders.Receipt(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, r)
	case "text":
		c.String(http.StatusOK, receipt.Format(r, s.header))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}
