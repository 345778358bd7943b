package handler

import (
	"net/http"

	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers")
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.ListCustomers)
		customers.GET("/exists", h.CheckExists)
		customers.GET("/:id", h.GetCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
		customers.DELETE("/:id", h.DeleteCustomer)

		customers.GET("/:id/measurements", h.GetMeasurements)
		customers.POST("/:id/measurements", h.SaveMeasurement)
		customers.DELETE("/:id/measurements/:measurementId", h.DeleteMeasurement)
	}
}

// CreateCustomer registers a new customer
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CustomerRequest  true  "Customer Payload"
// @Success      201      {object}  response.Response{data=service.CustomerResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// ListCustomers searches customers by a single field or across all text fields
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        search  query     string  false  "Search text"
// @Param        field   query     string  false  "Restrict the search to one field (name, phone, address, email, customerNumber)"
// @Param        limit   query     int     false  "Maximum number of customers (default 10)"
// @Success      200     {object}  response.Response{data=service.CustomerListResponse}
// @Failure      500     {object}  response.Response
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	limit := pagination.ParseLimit(c, 10)

	filter := service.CustomerFilter{
		SearchText:  c.Query("search"),
		SearchField: c.Query("field"),
		Limit:       limit,
	}

	customers, err := h.customerService.ListCustomers(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, customers))
}

// CheckExists reports whether a customer with the given phone already exists
// @Summary      Check customer exists
// @Tags         customers
// @Produce      json
// @Param        phone  query     string  true  "Phone number"
// @Success      200    {object}  response.Response{data=service.CustomerExistsResponse}
// @Failure      400    {object}  response.Response
// @Router       /api/customers/exists [get]
func (h *CustomerHandler) CheckExists(c *gin.Context) {
	result, err := h.customerService.CheckExists(c.Request.Context(), c.Query("phone"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetCustomer returns one customer with measurements
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.CustomerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// UpdateCustomer replaces a customer's details and measurements
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Customer ID"
// @Param        payload  body      service.CustomerRequest  true  "Customer Payload"
// @Success      200      {object}  response.Response{data=service.CustomerResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// DeleteCustomer removes a customer
// @Summary      Delete customer
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customerService.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetMeasurements returns a customer's measurement sets
// @Summary      Get measurements
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=[]model.Measurement}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id}/measurements [get]
func (h *CustomerHandler) GetMeasurements(c *gin.Context) {
	measurements, err := h.customerService.GetMeasurements(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, measurements))
}

// SaveMeasurement creates or updates one measurement set
// @Summary      Save measurement
// @Description  Creates a measurement set, or replaces the one matching the payload's id
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Customer ID"
// @Param        payload  body      service.MeasurementRequest  true  "Measurement Payload"
// @Success      200      {object}  response.Response{data=model.Measurement}
// @Failure      404      {object}  response.Response
// @Router       /api/customers/{id}/measurements [post]
func (h *CustomerHandler) SaveMeasurement(c *gin.Context) {
	var req service.MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	measurement, err := h.customerService.SaveMeasurement(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, measurement))
}

// DeleteMeasurement removes one measurement set
// @Summary      Delete measurement
// @Tags         customers
// @Produce      json
// @Param        id             path      string  true  "Customer ID"
// @Param        measurementId  path      string  true  "Measurement ID"
// @Success      200            {object}  response.Response
// @Failure      404            {object}  response.Response
// @Router       /api/customers/{id}/measurements/{measurementId} [delete]
func (h *CustomerHandler) DeleteMeasurement(c *gin.Context) {
	if err := h.customerService.DeleteMeasurement(c.Request.Context(), c.Param("id"), c.Param("measurementId")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
