package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
	"pharmacy/internal/logger"
	"pharmacy/internal/receipt"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"
)

const dateLayout = "2006-01-02"

type Server struct {
	engine   *gin.Engine
	catalog  *service.CatalogService
	orders   *service.OrderService
	sessions *service.SessionManager
	header   receipt.Header
	log      *zap.Logger
	now      func() time.Time
}

func NewServer(catalog *service.CatalogService, orders *service.OrderService, sessions *service.SessionManager, header receipt.Header, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(logger.GinMiddleware(log), gin.Recovery())
	s := &Server{engine: r, catalog: catalog, orders: orders, sessions: sessions, header: header, log: log, now: time.Now}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		medicines := v1.Group("/medicines")
		medicines.POST("", s.createMedicine)
		medicines.GET(":id", s.getMedicine)
		medicines.PUT(":id", s.updateMedicine)
		medicines.DELETE(":id", s.deleteMedicine)
		medicines.GET("", s.listMedicines)

		v1.GET("/inventory/expired", s.expiredMedicines)

		customers := v1.Group("/customers")
		customers.POST("", s.createCustomer)
		customers.GET("", s.listCustomers)
		customers.GET(":id", s.getCustomer)
		customers.GET(":id/orders", s.customerOrders)

		employees := v1.Group("/employees")
		employees.POST("", s.createEmployee)
		employees.GET("", s.listEmployees)
		employees.GET(":id", s.getEmployee)

		sessions := v1.Group("/sessions")
		sessions.POST("", s.openSession)
		sessions.GET(":id", s.getSession)
		sessions.DELETE(":id", s.closeSession)
		sessions.POST(":id/items", s.addItem)
		sessions.DELETE(":id/items/:index", s.removeItem)
		sessions.POST(":id/reset", s.resetSession)
		sessions.POST(":id/commit", s.commitSession)

		orders := v1.Group("/orders")
		orders.GET(":id", s.getOrder)
		orders.GET(":id/receipt", s.getReceipt)
	}
}

// Medicine handlers
type medicineReq struct {
	Name           string              `json:"name"`
	SKU            string              `json:"sku"`
	Category       string              `json:"category"`
	SupplierName   string              `json:"supplier_name"`
	Price          decimal.Decimal     `json:"price" swaggertype:"string" example:"5.50"`
	WholesalePrice decimal.NullDecimal `json:"wholesale_price" swaggertype:"string" example:"4.20"`
	Stock          int64               `json:"stock"`
	// ExpiryDate в формате YYYY-MM-DD
	ExpiryDate string `json:"expiry_date" example:"2027-03-01"`
}

func (r medicineReq) toDomain(id int64) (domain.Medicine, error) {
	m := domain.Medicine{
		ID:             id,
		Name:           r.Name,
		SKU:            r.SKU,
		Category:       r.Category,
		SupplierName:   r.SupplierName,
		Price:          r.Price,
		WholesalePrice: r.WholesalePrice,
		Stock:          r.Stock,
	}
	if r.ExpiryDate != "" {
		t, err := time.Parse(dateLayout, r.ExpiryDate)
		if err != nil {
			return domain.Medicine{}, service.ErrInvalidInput
		}
		m.ExpiryDate = &t
	}
	return m, nil
}

// @Summary Create medicine
// @Tags medicines
// @Accept json
// @Produce json
// @Param input body medicineReq true "Medicine"
// @Success 201 {object} domain.Medicine
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /medicines [post]
func (s *Server) createMedicine(c *gin.Context) {
	var req medicineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := req.toDomain(0)
	if err != nil {
		s.fail(c, err)
		return
	}
	created, err := s.catalog.CreateMedicine(c, m)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary Get medicine by id
// @Tags medicines
// @Produce json
// @Param id path int true "Medicine ID"
// @Success 200 {object} domain.Medicine
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /medicines/{id} [get]
func (s *Server) getMedicine(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	m, err := s.catalog.GetMedicine(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary Update medicine
// @Tags medicines
// @Accept json
// @Produce json
// @Param id path int true "Medicine ID"
// @Param input body medicineReq true "Medicine"
// @Success 200 {object} domain.Medicine
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /medicines/{id} [put]
func (s *Server) updateMedicine(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req medicineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := req.toDomain(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	updated, err := s.catalog.UpdateMedicine(c, m)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary Delete medicine
// @Description Medicines referenced by committed orders cannot be deleted
// @Tags medicines
// @Param id path int true "Medicine ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /medicines/{id} [delete]
func (s *Server) deleteMedicine(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.catalog.DeleteMedicine(c, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List medicines
// @Tags medicines
// @Produce json
// @Param q query string false "Name contains"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Medicine
// @Failure 400 {object} map[string]string
// @Router /medicines [get]
func (s *Server) listMedicines(c *gin.Context) {
	var f repository.MedicineFilter
	if q := c.Query("q"); q != "" {
		f.NameSubstring = q
	}
	if v := c.Query("min_price"); v != "" {
		x, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_price"})
			return
		}
		f.MinPrice = &x
	}
	if v := c.Query("max_price"); v != "" {
		x, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
			return
		}
		f.MaxPrice = &x
	}
	list, err := s.catalog.ListMedicines(c, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Expired medicines
// @Tags inventory
// @Produce json
// @Param at query string false "Reference date YYYY-MM-DD, today by default"
// @Success 200 {array} domain.Medicine
// @Failure 400 {object} map[string]string
// @Router /inventory/expired [get]
func (s *Server) expiredMedicines(c *gin.Context) {
	at := s.now()
	if v := c.Query("at"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		at = t
	}
	list, err := s.catalog.ExpiredMedicines(c, at)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Customer handlers
type createCustomerReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type customerResp struct {
	domain.Customer
	Tier string `json:"tier"`
}

func toCustomerResp(cu domain.Customer) customerResp {
	return customerResp{Customer: cu, Tier: cu.Tier()}
}

// @Summary Create customer
// @Tags customers
// @Accept json
// @Produce json
// @Param input body createCustomerReq true "Customer"
// @Success 201 {object} customerResp
// @Failure 400 {object} map[string]string
// @Router /customers [post]
func (s *Server) createCustomer(c *gin.Context) {
	var req createCustomerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cu, err := s.catalog.CreateCustomer(c, domain.Customer{Name: req.Name, Phone: req.Phone})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCustomerResp(*cu))
}

// @Summary List customers
// @Tags customers
// @Produce json
// @Param q query string false "Name contains"
// @Success 200 {array} customerResp
// @Router /customers [get]
func (s *Server) listCustomers(c *gin.Context) {
	list, err := s.catalog.ListCustomers(c, c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]customerResp, 0, len(list))
	for _, cu := range list {
		out = append(out, toCustomerResp(cu))
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Get customer by id
// @Tags customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} customerResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /customers/{id} [get]
func (s *Server) getCustomer(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cu, err := s.catalog.GetCustomer(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResp(*cu))
}

// @Summary Customer order history
// @Tags customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {array} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /customers/{id}/orders [get]
func (s *Server) customerOrders(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := s.orders.ListCustomerOrders(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Employee handlers
type createEmployeeReq struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// @Summary Create employee
// @Tags employees
// @Accept json
// @Produce json
// @Param input body createEmployeeReq true "Employee"
// @Success 201 {object} domain.Employee
// @Failure 400 {object} map[string]string
// @Router /employees [post]
func (s *Server) createEmployee(c *gin.Context) {
	var req createEmployeeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	e, err := s.catalog.CreateEmployee(c, domain.Employee{Name: req.Name, Role: req.Role})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// @Summary List employees
// @Tags employees
// @Produce json
// @Success 200 {array} domain.Employee
// @Router /employees [get]
func (s *Server) listEmployees(c *gin.Context) {
	list, err := s.catalog.ListEmployees(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get employee by id
// @Tags employees
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} domain.Employee
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /employees/{id} [get]
func (s *Server) getEmployee(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	e, err := s.catalog.GetEmployee(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// fail пишет ошибку со статусом из mapErrorToStatus; ошибки фиксации дополняются этапом
func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	body := gin.H{"error": err.Error()}
	var ce *service.CommitError
	if errors.As(err, &ce) {
		body["stage"] = string(ce.Stage)
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func mapErrorToStatus(err error) int {
	switch {
	// commit outcomes first: they may wrap repository errors
	case errors.Is(err, service.ErrPersistence),
		errors.Is(err, service.ErrLoyaltyUpdateFailed):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrStockChanged),
		errors.Is(err, service.ErrStockUpdateFailed):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrOrderTypeMismatch),
		errors.Is(err, service.ErrInvalidCustomer),
		errors.Is(err, service.ErrInvalidEmployee):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidOrderType),
		errors.Is(err, cart.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, cart.ErrMedicineNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, cart.ErrCartNotEmpty),
		errors.Is(err, repository.ErrAlreadyExists),
		errors.Is(err, repository.ErrInUse),
		errors.Is(err, service.ErrSessionBusy),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
