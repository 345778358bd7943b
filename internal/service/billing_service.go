package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend/internal/apierror"
	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type BillItemInput struct {
	ID             string          `json:"id"` // reuse an existing item id to keep its reference images
	Type           string          `json:"type"`
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	Quantity       int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	ConfigItemID   string          `json:"configItemId"`
	MaterialSource string          `json:"materialSource"`
	DeliveryStatus string          `json:"deliveryStatus"`
	InternalNotes  string          `json:"internalNotes"`
}

type ReceivedItemInput struct {
	ID           string `json:"id"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
	ReceivedDate string `json:"receivedDate"`
	Status       string `json:"status"`
}

type PaymentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes"`
}

type CreateBillRequest struct {
	CustomerID     string              `json:"customerId" binding:"required"`
	BillingDate    string              `json:"billingDate" binding:"required"`
	DeliveryDate   string              `json:"deliveryDate" binding:"required"`
	DeliveryStatus string              `json:"deliveryStatus"`
	Items          []BillItemInput     `json:"items" binding:"required,min=1,dive"`
	ReceivedItems  []ReceivedItemInput `json:"receivedItems" binding:"dive"`
	Payments       []PaymentInput      `json:"payments" binding:"dive"`
	Discount       decimal.Decimal     `json:"discount"`
	Notes          string              `json:"notes"`
}

type UpdateBillRequest struct {
	CustomerID     string              `json:"customerId" binding:"required"`
	BillingDate    string              `json:"billingDate" binding:"required"`
	DeliveryDate   string              `json:"deliveryDate" binding:"required"`
	DeliveryStatus string              `json:"deliveryStatus"`
	Items          []BillItemInput     `json:"items" binding:"required,min=1,dive"`
	ReceivedItems  []ReceivedItemInput `json:"receivedItems" binding:"dive"`
	Discount       decimal.Decimal     `json:"discount"`
	Notes          string              `json:"notes"`
}

type BillFilter struct {
	CustomerID       string
	Status           string
	DeliveryStatus   string
	BillingDateFrom  string
	BillingDateTo    string
	DeliveryDateFrom string
	DeliveryDateTo   string
	SearchText       string
	Limit            int
}

type BillItemResponse struct {
	ID              string          `json:"id"`
	BillID          string          `json:"billId"`
	Type            string          `json:"type"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	ConfigItemID    string          `json:"configItemId"`
	MaterialSource  string          `json:"materialSource"`
	DeliveryStatus  string          `json:"deliveryStatus"`
	InternalNotes   string          `json:"internalNotes"`
	ReferenceImages []string        `json:"referenceImages"`
	CreatedAt       int64           `json:"createdAt"`
	UpdatedAt       int64           `json:"updatedAt"`
}

type BillResponse struct {
	ID             string               `json:"id"`
	CustomerID     string               `json:"customerId"`
	BillNumber     string               `json:"billNumber"`
	BillingDate    string               `json:"billingDate"`
	DeliveryDate   string               `json:"deliveryDate"`
	DeliveryStatus string               `json:"deliveryStatus"`
	Items          []BillItemResponse   `json:"items"`
	ReceivedItems  []model.ReceivedItem `json:"receivedItems"`
	TotalAmount    decimal.Decimal      `json:"totalAmount"`
	PaidAmount     decimal.Decimal      `json:"paidAmount"`
	Outstanding    decimal.Decimal      `json:"outstandingAmount"`
	Status         string               `json:"status"`
	Payments       []model.Payment      `json:"payments"`
	Discount       decimal.Decimal      `json:"discount"`
	Notes          string               `json:"notes"`
	CreatedAt      int64                `json:"createdAt"`
	UpdatedAt      int64                `json:"updatedAt"`
}

type BillListResponse struct {
	Bills   []BillResponse `json:"bills"`
	HasMore bool           `json:"hasMore"`
}

// Websocket payload
type BillingEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// --- Interface ---

type BillingService interface {
	CreateBill(ctx context.Context, req CreateBillRequest) (*BillResponse, error)
	GetBill(ctx context.Context, id string) (*BillResponse, error)
	ListBills(ctx context.Context, filter BillFilter) (*BillListResponse, error)
	UpdateBill(ctx context.Context, id string, req UpdateBillRequest) (*BillResponse, error)
	DeleteBill(ctx context.Context, id string) error
	DeleteBillItem(ctx context.Context, itemID string) error

	AddPayment(ctx context.Context, billID string, req PaymentInput) (*BillResponse, error)
	UpdatePayment(ctx context.Context, billID, paymentID string, req PaymentInput) (*BillResponse, error)
	DeletePayment(ctx context.Context, billID, paymentID string) (*BillResponse, error)
}

type billingService struct {
	billRepo  repository.BillRepository
	itemRepo  repository.BillItemRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
	now       func() time.Time
}

func NewBillingService(
	billRepo repository.BillRepository,
	itemRepo repository.BillItemRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) BillingService {
	return &billingService{
		billRepo:  billRepo,
		itemRepo:  itemRepo,
		txManager: txManager,
		hub:       hub,
		now:       time.Now,
	}
}

// --- Derived-field recomputation ---

// deriveAmounts recomputes the three derived fields from the total and the
// payment list. Stored values are never trusted.
func deriveAmounts(total decimal.Decimal, payments []model.Payment) (paid, outstanding decimal.Decimal, status string) {
	paid = decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	paid = paid.Round(2)
	outstanding = total.Sub(paid)

	switch {
	case outstanding.LessThanOrEqual(decimal.Zero):
		status = model.BillStatusFullyPaid
	case paid.GreaterThan(decimal.Zero):
		status = model.BillStatusPartiallyPaid
	default:
		status = model.BillStatusUnpaid
	}
	return paid, outstanding, status
}

func statusFor(outstanding, paid decimal.Decimal) string {
	switch {
	case outstanding.LessThanOrEqual(decimal.Zero):
		return model.BillStatusFullyPaid
	case paid.GreaterThan(decimal.Zero):
		return model.BillStatusPartiallyPaid
	default:
		return model.BillStatusUnpaid
	}
}

func lineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

func validateItems(items []BillItemInput) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, item := range items {
		if item.Quantity <= 0 {
			return decimal.Zero, apierror.Validationf("item %d: quantity must be a positive integer", i)
		}
		if item.UnitPrice.IsNegative() {
			return decimal.Zero, apierror.Validationf("item %d: unit price must not be negative", i)
		}
		total = total.Add(lineTotal(item.Quantity, item.UnitPrice))
	}
	return total, nil
}

// billNumber derives the display number from the creation timestamp. Not
// globally unique under same-second creation; the UUID is the real key.
func billNumber(t time.Time) string {
	return "BILL-" + t.Format("20060102-150405")
}

// --- CreateBill ---

func (s *billingService) CreateBill(ctx context.Context, req CreateBillRequest) (*BillResponse, error) {
	total, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	nowUnix := now.Unix()

	// Initial payments: each positive, running sum capped at the total.
	payments := make([]model.Payment, 0, len(req.Payments))
	running := decimal.Zero
	for i, p := range req.Payments {
		if p.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, apierror.Validationf("payment %d: amount must be greater than zero", i)
		}
		running = running.Add(p.Amount)
		if running.GreaterThan(total) {
			return nil, apierror.Validationf("payments exceed total amount %s", total.StringFixed(2))
		}
		payments = append(payments, model.Payment{
			ID:            uuid.NewString(),
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate,
			PaymentMethod: p.PaymentMethod,
			Notes:         p.Notes,
			CreatedAt:     nowUnix,
		})
	}

	paid, outstanding, status := deriveAmounts(total, payments)

	bill := model.Bill{
		ID:             uuid.New(),
		CustomerID:     req.CustomerID,
		BillNumber:     billNumber(now),
		BillingDate:    req.BillingDate,
		DeliveryDate:   req.DeliveryDate,
		DeliveryStatus: req.DeliveryStatus,
		TotalAmount:    total,
		PaidAmount:     paid,
		Outstanding:    outstanding,
		Status:         status,
		Payments:       payments,
		ReceivedItems:  toReceivedItems(req.ReceivedItems, nowUnix),
		Discount:       req.Discount,
		Notes:          req.Notes,
		CreatedAt:      nowUnix,
		UpdatedAt:      nowUnix,
	}

	var items []model.BillItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.billRepo.Create(txCtx, &bill); err != nil {
			return apierror.Storage(err, "failed to create bill")
		}
		for _, input := range req.Items {
			item := newBillItem(bill.ID, input, nowUnix)
			if err := s.itemRepo.Save(txCtx, &item); err != nil {
				return apierror.Storage(err, "failed to create bill item")
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("bill.created", map[string]interface{}{
		"billId":     bill.ID.String(),
		"billNumber": bill.BillNumber,
		"customerId": bill.CustomerID,
	})

	resp := toBillResponse(&bill, items)
	return &resp, nil
}

func newBillItem(billID uuid.UUID, input BillItemInput, nowUnix int64) model.BillItem {
	return model.BillItem{
		ID:             uuid.New(),
		BillID:         billID,
		Type:           input.Type,
		Name:           input.Name,
		Description:    input.Description,
		Quantity:       input.Quantity,
		UnitPrice:      input.UnitPrice,
		TotalPrice:     lineTotal(input.Quantity, input.UnitPrice),
		ConfigItemID:   input.ConfigItemID,
		MaterialSource: input.MaterialSource,
		DeliveryStatus: input.DeliveryStatus,
		InternalNotes:  input.InternalNotes,
		CreatedAt:      nowUnix,
		UpdatedAt:      nowUnix,
	}
}

func toReceivedItems(inputs []ReceivedItemInput, nowUnix int64) []model.ReceivedItem {
	if len(inputs) == 0 {
		return nil
	}
	out := make([]model.ReceivedItem, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		receivedDate := in.ReceivedDate
		if receivedDate == "" {
			receivedDate = time.Unix(nowUnix, 0).UTC().Format("2006-01-02")
		}
		out = append(out, model.ReceivedItem{
			ID:           id,
			Name:         in.Name,
			Description:  in.Description,
			Quantity:     in.Quantity,
			ReceivedDate: receivedDate,
			Status:       in.Status,
		})
	}
	return out
}

// --- GetBill ---

func (s *billingService) GetBill(ctx context.Context, id string) (*BillResponse, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return nil, apierror.Validationf("invalid bill id: %s", id)
	}

	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("bill not found")
		}
		return nil, apierror.Storage(err, "failed to load bill")
	}

	items, err := s.loadItems(ctx, bill)
	if err != nil {
		return nil, err
	}

	s.heal(bill)
	resp := toBillResponse(bill, items)
	return &resp, nil
}

// heal rewrites the derived fields in memory from the stored total and
// payments, regardless of what was persisted for them.
func (s *billingService) heal(bill *model.Bill) {
	bill.PaidAmount, bill.Outstanding, bill.Status = deriveAmounts(bill.TotalAmount, bill.Payments)
}

// loadItems sources items from the ledger, falling back to the legacy
// embedded array for bills that predate it.
func (s *billingService) loadItems(ctx context.Context, bill *model.Bill) ([]model.BillItem, error) {
	items, err := s.itemRepo.FindByBill(ctx, bill.ID)
	if err != nil {
		return nil, apierror.Storage(err, "failed to load bill items")
	}
	if len(items) > 0 || len(bill.LegacyItems) == 0 {
		return items, nil
	}

	legacy := make([]model.BillItem, 0, len(bill.LegacyItems))
	for _, e := range bill.LegacyItems {
		id, parseErr := uuid.Parse(e.ID)
		if parseErr != nil {
			id = uuid.Nil
		}
		legacy = append(legacy, model.BillItem{
			ID:             id,
			BillID:         bill.ID,
			Type:           e.Type,
			Name:           e.Name,
			Description:    e.Description,
			Quantity:       e.Quantity,
			UnitPrice:      e.UnitPrice,
			TotalPrice:     e.TotalPrice,
			MaterialSource: e.MaterialSource,
			DeliveryStatus: e.DeliveryStatus,
			CreatedAt:      bill.CreatedAt,
			UpdatedAt:      bill.UpdatedAt,
		})
	}
	return legacy, nil
}

// --- ListBills ---

func (s *billingService) ListBills(ctx context.Context, filter BillFilter) (*BillListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	bills, err := s.billRepo.List(ctx, repository.BillQuery{
		CustomerID:       filter.CustomerID,
		DeliveryStatus:   filter.DeliveryStatus,
		BillingDateFrom:  filter.BillingDateFrom,
		BillingDateTo:    filter.BillingDateTo,
		DeliveryDateFrom: filter.DeliveryDateFrom,
		DeliveryDateTo:   filter.DeliveryDateTo,
		SearchText:       filter.SearchText,
	})
	if err != nil {
		return nil, apierror.Storage(err, "failed to list bills")
	}

	result := make([]BillResponse, 0, filter.Limit)
	for i := range bills {
		bill := &bills[i]
		s.heal(bill)
		// Status filters on the derived value, so it runs after healing.
		if filter.Status != "" && bill.Status != filter.Status {
			continue
		}
		items, err := s.loadItems(ctx, bill)
		if err != nil {
			return nil, err
		}
		result = append(result, toBillResponse(bill, items))
		if len(result) == filter.Limit {
			break
		}
	}

	return &BillListResponse{
		Bills:   result,
		HasMore: pagination.HasMore(len(result), filter.Limit),
	}, nil
}

// --- UpdateBill ---

func (s *billingService) UpdateBill(ctx context.Context, id string, req UpdateBillRequest) (*BillResponse, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return nil, apierror.Validationf("invalid bill id: %s", id)
	}

	total, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}

	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("bill not found")
		}
		return nil, apierror.Storage(err, "failed to load bill")
	}

	nowUnix := s.now().Unix()

	// Payments and paidAmount survive the edit untouched; outstanding and
	// status re-derive against the new total and the old paid amount.
	bill.CustomerID = req.CustomerID
	bill.BillingDate = req.BillingDate
	bill.DeliveryDate = req.DeliveryDate
	bill.DeliveryStatus = req.DeliveryStatus
	bill.TotalAmount = total
	bill.Outstanding = total.Sub(bill.PaidAmount)
	bill.Status = statusFor(bill.Outstanding, bill.PaidAmount)
	bill.ReceivedItems = toReceivedItems(req.ReceivedItems, nowUnix)
	bill.Discount = req.Discount
	bill.Notes = req.Notes
	bill.UpdatedAt = nowUnix

	var items []model.BillItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.billRepo.Save(txCtx, bill); err != nil {
			return apierror.Storage(err, "failed to update bill")
		}
		var replaceErr error
		items, replaceErr = s.replaceItems(txCtx, bill.ID, req.Items, nowUnix)
		return replaceErr
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("bill.updated", map[string]interface{}{
		"billId": bill.ID.String(),
		"status": bill.Status,
	})

	resp := toBillResponse(bill, items)
	return &resp, nil
}

// replaceItems applies full-replace semantics to the ledger with a diff:
// items whose id survives the edit keep their reference images and original
// createdAt; items missing from the new set are deleted; the rest are fresh.
// Naive delete-then-recreate would drop attached images on every edit.
// A client id is honored only when it already belongs to this bill's ledger;
// anything else gets a fresh id so an edit cannot upsert another bill's item.
func (s *billingService) replaceItems(ctx context.Context, billID uuid.UUID, inputs []BillItemInput, nowUnix int64) ([]model.BillItem, error) {
	existing, err := s.itemRepo.FindByBill(ctx, billID)
	if err != nil {
		return nil, apierror.Storage(err, "failed to load bill items")
	}
	existingByID := make(map[uuid.UUID]*model.BillItem, len(existing))
	for i := range existing {
		existingByID[existing[i].ID] = &existing[i]
	}

	kept := make(map[uuid.UUID]bool, len(inputs))
	items := make([]model.BillItem, 0, len(inputs))
	for _, input := range inputs {
		item := newBillItem(billID, input, nowUnix)
		if reused, err := uuid.Parse(input.ID); err == nil {
			if prev, ok := existingByID[reused]; ok {
				item.ID = reused
				item.ReferenceImages = prev.ReferenceImages
				item.CreatedAt = prev.CreatedAt
			}
		}
		kept[item.ID] = true
		if err := s.itemRepo.Save(ctx, &item); err != nil {
			return nil, apierror.Storage(err, "failed to save bill item")
		}
		items = append(items, item)
	}

	for i := range existing {
		if kept[existing[i].ID] {
			continue
		}
		if err := s.itemRepo.Delete(ctx, existing[i].ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Storage(err, "failed to delete bill item")
		}
	}

	return items, nil
}

// --- DeleteBill ---

func (s *billingService) DeleteBill(ctx context.Context, id string) error {
	billID, err := uuid.Parse(id)
	if err != nil {
		return apierror.Validationf("invalid bill id: %s", id)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Items first: a failure here must leave the header intact.
		if err := s.itemRepo.DeleteAllForBill(txCtx, billID); err != nil {
			return apierror.Storage(err, "failed to delete bill items")
		}
		if err := s.billRepo.Delete(txCtx, billID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFoundf("bill not found")
			}
			return apierror.Storage(err, "failed to delete bill")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast("bill.deleted", map[string]interface{}{"billId": billID.String()})
	return nil
}

// --- DeleteBillItem ---

// DeleteBillItem removes one line item and fixes the header up by
// subtraction: the item's totalPrice comes off totalAmount (floored at
// zero) rather than re-summing the ledger, so the adjustment stays correct
// even when the ledger and header have drifted apart.
func (s *billingService) DeleteBillItem(ctx context.Context, itemID string) error {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return apierror.Validationf("invalid item id: %s", itemID)
	}

	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFoundf("bill item not found")
		}
		return apierror.Storage(err, "failed to load bill item")
	}

	if err := s.itemRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFoundf("bill item not found")
		}
		return apierror.Storage(err, "failed to delete bill item")
	}

	bill, err := s.billRepo.FindByID(ctx, item.BillID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Orphaned item; nothing left to adjust.
			return nil
		}
		return apierror.Storage(err, "failed to load bill")
	}

	total := bill.TotalAmount.Sub(item.TotalPrice)
	if total.IsNegative() {
		total = decimal.Zero
	}
	bill.TotalAmount = total
	bill.Outstanding = total.Sub(bill.PaidAmount)
	bill.Status = statusFor(bill.Outstanding, bill.PaidAmount)
	bill.UpdatedAt = s.now().Unix()

	if err := s.billRepo.Save(ctx, bill); err != nil {
		return apierror.Storage(err, "failed to update bill totals")
	}

	s.broadcast("bill.updated", map[string]interface{}{
		"billId": bill.ID.String(),
		"status": bill.Status,
	})
	return nil
}

// --- Mapping ---

func toBillResponse(bill *model.Bill, items []model.BillItem) BillResponse {
	itemResponses := make([]BillItemResponse, 0, len(items))
	for _, item := range items {
		itemResponses = append(itemResponses, BillItemResponse{
			ID:              item.ID.String(),
			BillID:          item.BillID.String(),
			Type:            item.Type,
			Name:            item.Name,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TotalPrice:      item.TotalPrice,
			ConfigItemID:    item.ConfigItemID,
			MaterialSource:  item.MaterialSource,
			DeliveryStatus:  item.DeliveryStatus,
			InternalNotes:   item.InternalNotes,
			ReferenceImages: item.ReferenceImages,
			CreatedAt:       item.CreatedAt,
			UpdatedAt:       item.UpdatedAt,
		})
	}

	return BillResponse{
		ID:             bill.ID.String(),
		CustomerID:     bill.CustomerID,
		BillNumber:     bill.BillNumber,
		BillingDate:    bill.BillingDate,
		DeliveryDate:   bill.DeliveryDate,
		DeliveryStatus: bill.DeliveryStatus,
		Items:          itemResponses,
		ReceivedItems:  bill.ReceivedItems,
		TotalAmount:    bill.TotalAmount,
		PaidAmount:     bill.PaidAmount,
		Outstanding:    bill.Outstanding,
		Status:         bill.Status,
		Payments:       bill.Payments,
		Discount:       bill.Discount,
		Notes:          bill.Notes,
		CreatedAt:      bill.CreatedAt,
		UpdatedAt:      bill.UpdatedAt,
	}
}

func (s *billingService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(BillingEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}
