package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"backend/internal/apierror"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Stubs ---

// stubBillRepo is an in-memory BillRepository.
type stubBillRepo struct {
	bills         map[uuid.UUID]*model.Bill
	order         []uuid.UUID
	forceConflict bool
}

func newStubBillRepo() *stubBillRepo {
	return &stubBillRepo{bills: make(map[uuid.UUID]*model.Bill)}
}

func (r *stubBillRepo) Create(_ context.Context, bill *model.Bill) error {
	cp := *bill
	r.bills[bill.ID] = &cp
	r.order = append(r.order, bill.ID)
	return nil
}

func (r *stubBillRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Bill, error) {
	b, ok := r.bills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	cp.Payments = append([]model.Payment(nil), b.Payments...)
	return &cp, nil
}

func (r *stubBillRepo) List(_ context.Context, q repository.BillQuery) ([]model.Bill, error) {
	var out []model.Bill
	for _, id := range r.order {
		b, ok := r.bills[id]
		if !ok {
			continue
		}
		if q.CustomerID != "" && b.CustomerID != q.CustomerID {
			continue
		}
		if q.DeliveryStatus != "" {
			if q.DeliveryStatus == model.DeliveryStatusPending {
				if b.DeliveryStatus != "" && b.DeliveryStatus != model.DeliveryStatusPending {
					continue
				}
			} else if b.DeliveryStatus != q.DeliveryStatus {
				continue
			}
		}
		if q.SearchText != "" &&
			!strings.Contains(b.BillNumber, q.SearchText) &&
			!strings.Contains(b.Notes, q.SearchText) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (r *stubBillRepo) Save(_ context.Context, bill *model.Bill) error {
	if _, ok := r.bills[bill.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *bill
	r.bills[bill.ID] = &cp
	return nil
}

func (r *stubBillRepo) SaveWithVersion(_ context.Context, bill *model.Bill, expected int64) error {
	stored, ok := r.bills[bill.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.forceConflict || stored.Version != expected {
		return repository.ErrVersionConflict
	}
	bill.Version = expected + 1
	cp := *bill
	r.bills[bill.ID] = &cp
	return nil
}

func (r *stubBillRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.bills[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.bills, id)
	return nil
}

var _ repository.BillRepository = (*stubBillRepo)(nil)

// stubItemRepo is an in-memory BillItemRepository.
type stubItemRepo struct {
	items      map[uuid.UUID]*model.BillItem
	order      []uuid.UUID
	failAppend bool
	findFails  int
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{items: make(map[uuid.UUID]*model.BillItem)}
}

func (r *stubItemRepo) FindByBill(_ context.Context, billID uuid.UUID) ([]model.BillItem, error) {
	var out []model.BillItem
	for _, id := range r.order {
		item, ok := r.items[id]
		if ok && item.BillID == billID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.BillItem, error) {
	if r.findFails > 0 {
		r.findFails--
		return nil, errors.New("transient read failure")
	}
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	cp.ReferenceImages = append([]string(nil), item.ReferenceImages...)
	return &cp, nil
}

func (r *stubItemRepo) Save(_ context.Context, item *model.BillItem) error {
	if _, ok := r.items[item.ID]; !ok {
		r.order = append(r.order, item.ID)
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *stubItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *stubItemRepo) DeleteAllForBill(_ context.Context, billID uuid.UUID) error {
	for id, item := range r.items {
		if item.BillID == billID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *stubItemRepo) AppendReferenceImage(_ context.Context, id uuid.UUID, url string, updatedAt int64) error {
	if r.failAppend {
		return errors.New("append not supported")
	}
	item, ok := r.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.ReferenceImages = append(item.ReferenceImages, url)
	item.UpdatedAt = updatedAt
	return nil
}

func (r *stubItemRepo) SetReferenceImages(_ context.Context, id uuid.UUID, urls []string, updatedAt int64) error {
	item, ok := r.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.ReferenceImages = urls
	item.UpdatedAt = updatedAt
	return nil
}

var _ repository.BillItemRepository = (*stubItemRepo)(nil)

// stubTx runs the function without a real transaction.
type stubTx struct{}

func (stubTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

var _ repository.TransactionManager = stubTx{}

// --- Fixtures ---

func newBillingFixture(t *testing.T) (*stubBillRepo, *stubItemRepo, *billingService) {
	t.Helper()
	billRepo := newStubBillRepo()
	itemRepo := newStubItemRepo()
	svc := NewBillingService(billRepo, itemRepo, stubTx{}, nil).(*billingService)
	svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return billRepo, itemRepo, svc
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func itemInput(name string, qty int, price string) BillItemInput {
	return BillItemInput{Type: "stitching", Name: name, Quantity: qty, UnitPrice: d(price)}
}

// --- CreateBill ---

func TestCreateBillDerivesAmounts(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	bill, err := svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "cust-1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items: []BillItemInput{
			itemInput("Kurta", 3, "149.50"),
			itemInput("Blouse", 1, "51.50"),
		},
		Payments: []PaymentInput{{Amount: d("100")}},
	})
	require.NoError(t, err)

	assert.True(t, bill.TotalAmount.Equal(d("500")), "total = %s", bill.TotalAmount)
	assert.True(t, bill.PaidAmount.Equal(d("100")))
	assert.True(t, bill.Outstanding.Equal(d("400")))
	assert.Equal(t, model.BillStatusPartiallyPaid, bill.Status)
	assert.True(t, strings.HasPrefix(bill.BillNumber, "BILL-"))

	require.Len(t, bill.Items, 2)
	assert.True(t, bill.Items[0].TotalPrice.Equal(d("448.50")))
	assert.Equal(t, 3, bill.Items[0].Quantity)

	require.Len(t, bill.Payments, 1)
	assert.NotEmpty(t, bill.Payments[0].ID)
}

func TestCreateBillUnpaidWithoutPayments(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	bill, err := svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "cust-1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 1, "250")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusUnpaid, bill.Status)
	assert.True(t, bill.Outstanding.Equal(d("250")))
}

func TestCreateBillPaymentCeiling(t *testing.T) {
	tests := []struct {
		name     string
		payments []PaymentInput
		wantErr  bool
		status   string
	}{
		{"exceeds total", []PaymentInput{{Amount: d("600")}, {Amount: d("401")}}, true, ""},
		{"exactly total", []PaymentInput{{Amount: d("600")}, {Amount: d("400")}}, false, model.BillStatusFullyPaid},
		{"single over", []PaymentInput{{Amount: d("1001")}}, true, ""},
		{"under total", []PaymentInput{{Amount: d("999.99")}}, false, model.BillStatusPartiallyPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billRepo, _, svc := newBillingFixture(t)

			bill, err := svc.CreateBill(context.Background(), CreateBillRequest{
				CustomerID:   "cust-1",
				BillingDate:  "2024-01-10",
				DeliveryDate: "2024-01-20",
				Items:        []BillItemInput{itemInput("Sherwani", 4, "250")},
				Payments:     tt.payments,
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apierror.IsKind(err, apierror.KindValidation))
				// The whole create fails: nothing persisted.
				assert.Empty(t, billRepo.bills)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, bill.Status)
		})
	}
}

func TestCreateBillRejectsBadItems(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	_, err := svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "cust-1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 0, "100")},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	_, err = svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "cust-1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 1, "-5")},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

// --- GetBill ---

func TestGetBillHealsStoredDerivedFields(t *testing.T) {
	billRepo, _, svc := newBillingFixture(t)

	id := uuid.New()
	billRepo.bills[id] = &model.Bill{
		ID:          id,
		TotalAmount: d("300"),
		// Stored derived fields are stale on purpose.
		PaidAmount:  d("0"),
		Outstanding: d("300"),
		Status:      model.BillStatusUnpaid,
		Payments: []model.Payment{
			{ID: "p1", Amount: d("120.005")},
			{ID: "p2", Amount: d("30")},
		},
	}
	billRepo.order = append(billRepo.order, id)

	bill, err := svc.GetBill(context.Background(), id.String())
	require.NoError(t, err)
	assert.True(t, bill.PaidAmount.Equal(d("150.01")), "paid = %s", bill.PaidAmount)
	assert.True(t, bill.Outstanding.Equal(d("149.99")))
	assert.Equal(t, model.BillStatusPartiallyPaid, bill.Status)
}

func TestGetBillNotFound(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	_, err := svc.GetBill(context.Background(), uuid.NewString())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestGetBillFallsBackToLegacyEmbeddedItems(t *testing.T) {
	billRepo, _, svc := newBillingFixture(t)

	id := uuid.New()
	billRepo.bills[id] = &model.Bill{
		ID:          id,
		TotalAmount: d("200"),
		LegacyItems: []model.EmbeddedItem{
			{ID: uuid.NewString(), Name: "Old kurta", Quantity: 2, UnitPrice: d("100"), TotalPrice: d("200")},
		},
	}
	billRepo.order = append(billRepo.order, id)

	bill, err := svc.GetBill(context.Background(), id.String())
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, "Old kurta", bill.Items[0].Name)
	assert.True(t, bill.Items[0].TotalPrice.Equal(d("200")))
}

// --- ListBills ---

func seedBill(t *testing.T, svc *billingService, customerID, deliveryStatus, payment string) *BillResponse {
	t.Helper()
	req := CreateBillRequest{
		CustomerID:     customerID,
		BillingDate:    "2024-01-10",
		DeliveryDate:   "2024-01-20",
		DeliveryStatus: deliveryStatus,
		Items:          []BillItemInput{itemInput("Kurta", 1, "100")},
	}
	if payment != "" {
		req.Payments = []PaymentInput{{Amount: d(payment)}}
	}
	bill, err := svc.CreateBill(context.Background(), req)
	require.NoError(t, err)
	return bill
}

func TestListBillsStatusFilterRunsOnHealedValues(t *testing.T) {
	billRepo, _, svc := newBillingFixture(t)

	paid := seedBill(t, svc, "c1", "", "100")
	seedBill(t, svc, "c1", "", "40")
	seedBill(t, svc, "c1", "", "")

	// Corrupt the stored status of the fully paid bill; the filter must
	// still see it as fully_paid after recomputation.
	stored := billRepo.bills[uuid.MustParse(paid.ID)]
	stored.Status = model.BillStatusUnpaid

	list, err := svc.ListBills(context.Background(), BillFilter{Status: model.BillStatusFullyPaid})
	require.NoError(t, err)
	require.Len(t, list.Bills, 1)
	assert.Equal(t, paid.ID, list.Bills[0].ID)
	assert.False(t, list.HasMore)
}

func TestListBillsPendingMatchesMissingDeliveryStatus(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	seedBill(t, svc, "c1", "", "")
	seedBill(t, svc, "c1", model.DeliveryStatusPending, "")
	seedBill(t, svc, "c1", "delivered", "")

	list, err := svc.ListBills(context.Background(), BillFilter{DeliveryStatus: model.DeliveryStatusPending})
	require.NoError(t, err)
	assert.Len(t, list.Bills, 2)
}

func TestListBillsHasMoreAtLimit(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	for i := 0; i < 3; i++ {
		seedBill(t, svc, "c1", "", "")
	}

	list, err := svc.ListBills(context.Background(), BillFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Bills, 2)
	assert.True(t, list.HasMore)

	list, err = svc.ListBills(context.Background(), BillFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list.Bills, 3)
	assert.False(t, list.HasMore)
}

// --- UpdateBill ---

func TestUpdateBillPreservesPaymentsAndImages(t *testing.T) {
	_, itemRepo, svc := newBillingFixture(t)

	created, err := svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 2, "100")},
		Payments:     []PaymentInput{{Amount: d("200")}},
	})
	require.NoError(t, err)
	itemA := created.Items[0]

	// Attach two reference images to item A out of band.
	aID := uuid.MustParse(itemA.ID)
	itemRepo.items[aID].ReferenceImages = []string{"http://x/1.jpg", "http://x/2.jpg"}

	// Add item B, then replace the set with [A edited, C new].
	bID := uuid.New()
	require.NoError(t, itemRepo.Save(context.Background(), &model.BillItem{
		ID: bID, BillID: uuid.MustParse(created.ID), Name: "B", Quantity: 1,
		UnitPrice: d("50"), TotalPrice: d("50"),
	}))

	updated, err := svc.UpdateBill(context.Background(), created.ID, UpdateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-25",
		Items: []BillItemInput{
			{ID: itemA.ID, Type: "stitching", Name: "Kurta deluxe", Quantity: 2, UnitPrice: d("150")},
			itemInput("C", 1, "100"),
		},
	})
	require.NoError(t, err)

	// New total 400, old paid 200 preserved.
	assert.True(t, updated.TotalAmount.Equal(d("400")))
	assert.True(t, updated.PaidAmount.Equal(d("200")))
	assert.True(t, updated.Outstanding.Equal(d("200")))
	assert.Equal(t, model.BillStatusPartiallyPaid, updated.Status)
	require.Len(t, updated.Payments, 1)

	require.Len(t, updated.Items, 2)
	byName := map[string]BillItemResponse{}
	for _, it := range updated.Items {
		byName[it.Name] = it
	}
	assert.Equal(t, []string{"http://x/1.jpg", "http://x/2.jpg"}, byName["Kurta deluxe"].ReferenceImages)
	assert.Empty(t, byName["C"].ReferenceImages)

	// B is gone from storage.
	_, err = itemRepo.FindByID(context.Background(), bID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateBillMintsFreshIDForOtherBillsItem(t *testing.T) {
	_, itemRepo, svc := newBillingFixture(t)

	mine := seedBill(t, svc, "c1", "", "")
	other := seedBill(t, svc, "c2", "", "")
	otherItemID := other.Items[0].ID

	// Reusing an id from another bill's ledger must not re-home that item.
	updated, err := svc.UpdateBill(context.Background(), mine.ID, UpdateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items: []BillItemInput{
			{ID: otherItemID, Name: "Sherwani", Quantity: 1, UnitPrice: d("100")},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.NotEqual(t, otherItemID, updated.Items[0].ID)

	stored, err := itemRepo.FindByID(context.Background(), uuid.MustParse(otherItemID))
	require.NoError(t, err)
	assert.Equal(t, other.ID, stored.BillID.String())
	assert.Equal(t, "Kurta", stored.Name)
}

func TestUpdateBillCanFlipStatusWithoutTouchingPayments(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	created := seedBill(t, svc, "c1", "", "100")
	require.Equal(t, model.BillStatusFullyPaid, created.Status)

	// Raising the total after full payment reopens the bill.
	updated, err := svc.UpdateBill(context.Background(), created.ID, UpdateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 3, "100")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPartiallyPaid, updated.Status)
	assert.True(t, updated.Outstanding.Equal(d("200")))
}

// --- DeleteBill / DeleteBillItem ---

func TestDeleteBillCascadesItems(t *testing.T) {
	billRepo, itemRepo, svc := newBillingFixture(t)

	created := seedBill(t, svc, "c1", "", "")
	require.NoError(t, svc.DeleteBill(context.Background(), created.ID))

	assert.Empty(t, billRepo.bills)
	assert.Empty(t, itemRepo.items)

	err := svc.DeleteBill(context.Background(), created.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestDeleteBillItemSubtractsFromHeader(t *testing.T) {
	billRepo, _, svc := newBillingFixture(t)

	created, err := svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items: []BillItemInput{
			itemInput("Kurta", 1, "100"),
			itemInput("Sherwani", 1, "400"),
		},
		Payments: []PaymentInput{{Amount: d("200")}},
	})
	require.NoError(t, err)

	var small BillItemResponse
	for _, it := range created.Items {
		if it.Name == "Kurta" {
			small = it
		}
	}
	require.NoError(t, svc.DeleteBillItem(context.Background(), small.ID))

	stored := billRepo.bills[uuid.MustParse(created.ID)]
	assert.True(t, stored.TotalAmount.Equal(d("400")))
	assert.True(t, stored.Outstanding.Equal(d("200")))
	assert.Equal(t, model.BillStatusPartiallyPaid, stored.Status)
}

func TestDeleteBillItemFloorsTotalAtZero(t *testing.T) {
	billRepo, itemRepo, svc := newBillingFixture(t)

	created := seedBill(t, svc, "c1", "", "")
	billID := uuid.MustParse(created.ID)

	// Drifted header: total smaller than the item's recorded price.
	billRepo.bills[billID].TotalAmount = d("40")

	itemID := uuid.MustParse(created.Items[0].ID)
	require.NotNil(t, itemRepo.items[itemID])
	require.NoError(t, svc.DeleteBillItem(context.Background(), created.Items[0].ID))

	stored := billRepo.bills[billID]
	assert.True(t, stored.TotalAmount.Equal(decimal.Zero))
	assert.Equal(t, model.BillStatusFullyPaid, stored.Status)
}

func TestDeleteBillItemNotFound(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	err := svc.DeleteBillItem(context.Background(), uuid.NewString())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

// --- lineTotal ---

func TestLineTotalFractionalPrices(t *testing.T) {
	assert.True(t, lineTotal(3, d("149.50")).Equal(d("448.50")))
	assert.True(t, lineTotal(1, d("0")).Equal(decimal.Zero))
	assert.True(t, lineTotal(7, d("33.333")).Equal(d("233.33")))
}
