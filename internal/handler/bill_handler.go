package handler

import (
	"net/http"

	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type BillHandler struct {
	billingService service.BillingService
	imageService   service.ImageService
}

func NewBillHandler(billingService service.BillingService, imageService service.ImageService) *BillHandler {
	return &BillHandler{
		billingService: billingService,
		imageService:   imageService,
	}
}

func (h *BillHandler) RegisterRoutes(router *gin.RouterGroup) {
	bills := router.Group("/api/bills")
	{
		bills.POST("", h.CreateBill)
		bills.GET("", h.ListBills)
		bills.GET("/:id", h.GetBill)
		bills.PUT("/:id", h.UpdateBill)
		bills.DELETE("/:id", h.DeleteBill)

		bills.POST("/:id/payments", h.AddPayment)
		bills.PUT("/:id/payments/:paymentId", h.UpdatePayment)
		bills.DELETE("/:id/payments/:paymentId", h.DeletePayment)

		bills.DELETE("/:id/items/:itemId", h.DeleteBillItem)
		bills.POST("/:id/items/:itemId/images", h.AttachImage)
		bills.GET("/:id/items/:itemId/images", h.ListImages)
		bills.DELETE("/:id/items/:itemId/images/:imageId", h.DetachImage)
	}
}

// CreateBill creates a bill with its items and optional initial payments
// @Summary      Create bill
// @Description  Creates a bill with its line items and an optional initial payment ledger
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBillRequest  true  "Create Bill Payload"
// @Success      201      {object}  response.Response{data=service.BillResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	var req service.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bill, err := h.billingService.CreateBill(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bill))
}

// ListBills returns bills matching the given filters
// @Summary      List bills
// @Description  Retrieves bills filtered by customer, status, delivery status, date ranges or free text
// @Tags         bills
// @Produce      json
// @Param        customerId          query     string  false  "Filter by customer ID"
// @Param        status              query     string  false  "Filter by payment status (unpaid, partially_paid, fully_paid)"
// @Param        deliveryStatus      query     string  false  "Filter by delivery status (pending matches bills without one)"
// @Param        billingDateFrom     query     string  false  "Billing date lower bound (YYYY-MM-DD)"
// @Param        billingDateTo       query     string  false  "Billing date upper bound (YYYY-MM-DD)"
// @Param        deliveryDateFrom    query     string  false  "Delivery date lower bound (YYYY-MM-DD)"
// @Param        deliveryDateTo      query     string  false  "Delivery date upper bound (YYYY-MM-DD)"
// @Param        search              query     string  false  "Free-text search over bill number and notes"
// @Param        limit               query     int     false  "Maximum number of bills (default 20)"
// @Success      200                 {object}  response.Response{data=service.BillListResponse}
// @Failure      500                 {object}  response.Response
// @Router       /api/bills [get]
func (h *BillHandler) ListBills(c *gin.Context) {
	limit := pagination.ParseLimit(c, 20)

	filter := service.BillFilter{
		CustomerID:       c.Query("customerId"),
		Status:           c.Query("status"),
		DeliveryStatus:   c.Query("deliveryStatus"),
		BillingDateFrom:  c.Query("billingDateFrom"),
		BillingDateTo:    c.Query("billingDateTo"),
		DeliveryDateFrom: c.Query("deliveryDateFrom"),
		DeliveryDateTo:   c.Query("deliveryDateTo"),
		SearchText:       c.Query("search"),
		Limit:            limit,
	}

	bills, err := h.billingService.ListBills(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bills))
}

// GetBill returns one bill with its items, payments and derived amounts
// @Summary      Get bill
// @Tags         bills
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  response.Response{data=service.BillResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	bill, err := h.billingService.GetBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// UpdateBill replaces a bill's header and items while preserving its payments
// @Summary      Update bill
// @Description  Replaces items and received items wholesale; the payment ledger and paid amount are preserved
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Bill ID"
// @Param        payload  body      service.UpdateBillRequest  true  "Update Bill Payload"
// @Success      200      {object}  response.Response{data=service.BillResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/bills/{id} [put]
func (h *BillHandler) UpdateBill(c *gin.Context) {
	var req service.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bill, err := h.billingService.UpdateBill(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// DeleteBill deletes a bill and all of its items
// @Summary      Delete bill
// @Tags         bills
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *gin.Context) {
	if err := h.billingService.DeleteBill(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// DeleteBillItem removes a single item and adjusts the parent bill's totals
// @Summary      Delete bill item
// @Description  Removes one item and subtracts its total from the bill, recomputing outstanding amount and status
// @Tags         bills
// @Produce      json
// @Param        id      path      string  true  "Bill ID"
// @Param        itemId  path      string  true  "Bill Item ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/bills/{id}/items/{itemId} [delete]
func (h *BillHandler) DeleteBillItem(c *gin.Context) {
	if err := h.billingService.DeleteBillItem(c.Request.Context(), c.Param("itemId")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// AddPayment appends a payment to a bill's ledger
// @Summary      Add payment
// @Description  Appends a payment and recomputes paid amount, outstanding amount and status
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Bill ID"
// @Param        payload  body      service.PaymentInput  true  "Payment Payload"
// @Success      201      {object}  response.Response{data=service.BillResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/bills/{id}/payments [post]
func (h *BillHandler) AddPayment(c *gin.Context) {
	var req service.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bill, err := h.billingService.AddPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bill))
}

// UpdatePayment replaces one payment entry
// @Summary      Update payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id         path      string                true  "Bill ID"
// @Param        paymentId  path      string                true  "Payment ID"
// @Param        payload    body      service.PaymentInput  true  "Payment Payload"
// @Success      200        {object}  response.Response{data=service.BillResponse}
// @Failure      404        {object}  response.Response
// @Failure      409        {object}  response.Response
// @Router       /api/bills/{id}/payments/{paymentId} [put]
func (h *BillHandler) UpdatePayment(c *gin.Context) {
	var req service.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bill, err := h.billingService.UpdatePayment(c.Request.Context(), c.Param("id"), c.Param("paymentId"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// DeletePayment removes one payment entry
// @Summary      Delete payment
// @Tags         payments
// @Produce      json
// @Param        id         path      string  true  "Bill ID"
// @Param        paymentId  path      string  true  "Payment ID"
// @Success      200        {object}  response.Response{data=service.BillResponse}
// @Failure      404        {object}  response.Response
// @Failure      409        {object}  response.Response
// @Router       /api/bills/{id}/payments/{paymentId} [delete]
func (h *BillHandler) DeletePayment(c *gin.Context) {
	bill, err := h.billingService.DeletePayment(c.Request.Context(), c.Param("id"), c.Param("paymentId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// AttachImage stores a base64 image and appends its URL to the item
// @Summary      Attach reference image
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Bill ID"
// @Param        itemId   path      string                      true  "Bill Item ID"
// @Param        payload  body      service.AttachImageRequest  true  "Image Payload"
// @Success      201      {object}  response.Response{data=service.AttachImageResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/bills/{id}/items/{itemId}/images [post]
func (h *BillHandler) AttachImage(c *gin.Context) {
	var req service.AttachImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.imageService.Attach(c.Request.Context(), c.Param("id"), c.Param("itemId"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListImages returns an item's reference image URLs
// @Summary      List reference images
// @Tags         images
// @Produce      json
// @Param        id      path      string  true  "Bill ID"
// @Param        itemId  path      string  true  "Bill Item ID"
// @Success      200     {object}  response.Response{data=[]string}
// @Failure      404     {object}  response.Response
// @Router       /api/bills/{id}/items/{itemId}/images [get]
func (h *BillHandler) ListImages(c *gin.Context) {
	urls, err := h.imageService.List(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, urls))
}

// DetachImage removes a reference image from an item
// @Summary      Detach reference image
// @Description  Drops the matching URL from the item; blob deletion is best effort
// @Tags         images
// @Produce      json
// @Param        id       path      string  true  "Bill ID"
// @Param        itemId   path      string  true  "Bill Item ID"
// @Param        imageId  path      string  true  "Image ID"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/bills/{id}/items/{itemId}/images/{imageId} [delete]
func (h *BillHandler) DetachImage(c *gin.Context) {
	if err := h.imageService.Detach(c.Request.Context(), c.Param("id"), c.Param("itemId"), c.Param("imageId")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
