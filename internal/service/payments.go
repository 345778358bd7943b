package service

import (
	"context"
	"errors"

	"backend/internal/apierror"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment ledger operations. All three read-modify-write the embedded
// payments list and persist the header through a compare-and-swap on the
// version column, so two interleaved writers cannot silently drop each
// other's payment; the loser gets a conflict and retries.

func (s *billingService) AddPayment(ctx context.Context, billID string, req PaymentInput) (*BillResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apierror.Validationf("payment amount must be greater than zero")
	}

	bill, version, err := s.loadForPayment(ctx, billID)
	if err != nil {
		return nil, err
	}

	// Ceiling check runs against the stored paid amount, not a fresh sum.
	outstanding := bill.TotalAmount.Sub(bill.PaidAmount)
	if req.Amount.GreaterThan(outstanding) {
		return nil, apierror.Validationf("payment amount %s exceeds outstanding balance %s",
			req.Amount.StringFixed(2), outstanding.StringFixed(2))
	}

	nowUnix := s.now().Unix()
	payment := model.Payment{
		ID:            uuid.NewString(),
		Amount:        req.Amount,
		PaymentDate:   req.PaymentDate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CreatedAt:     nowUnix,
	}
	bill.Payments = append(bill.Payments, payment)
	bill.PaidAmount = bill.PaidAmount.Add(req.Amount).Round(2)
	bill.Outstanding = bill.TotalAmount.Sub(bill.PaidAmount)
	bill.Status = statusFor(bill.Outstanding, bill.PaidAmount)
	bill.UpdatedAt = nowUnix

	if err := s.savePayments(ctx, bill, version); err != nil {
		return nil, err
	}

	s.broadcast("payment.added", map[string]interface{}{
		"billId":    bill.ID.String(),
		"paymentId": payment.ID,
		"status":    bill.Status,
	})
	return s.paymentResponse(ctx, bill)
}

func (s *billingService) UpdatePayment(ctx context.Context, billID, paymentID string, req PaymentInput) (*BillResponse, error) {
	bill, version, err := s.loadForPayment(ctx, billID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range bill.Payments {
		if bill.Payments[i].ID == paymentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apierror.NotFoundf("payment not found")
	}

	// Full field replace; only the id and original createdAt survive. No
	// ceiling check here: corrections may push the paid sum past the total.
	bill.Payments[idx] = model.Payment{
		ID:            paymentID,
		Amount:        req.Amount,
		PaymentDate:   req.PaymentDate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CreatedAt:     bill.Payments[idx].CreatedAt,
	}

	s.heal(bill)
	bill.UpdatedAt = s.now().Unix()

	if err := s.savePayments(ctx, bill, version); err != nil {
		return nil, err
	}

	s.broadcast("payment.updated", map[string]interface{}{
		"billId":    bill.ID.String(),
		"paymentId": paymentID,
		"status":    bill.Status,
	})
	return s.paymentResponse(ctx, bill)
}

func (s *billingService) DeletePayment(ctx context.Context, billID, paymentID string) (*BillResponse, error) {
	bill, version, err := s.loadForPayment(ctx, billID)
	if err != nil {
		return nil, err
	}

	filtered := bill.Payments[:0:0]
	found := false
	for _, p := range bill.Payments {
		if p.ID == paymentID {
			found = true
			continue
		}
		filtered = append(filtered, p)
	}
	if !found {
		return nil, apierror.NotFoundf("payment not found")
	}

	bill.Payments = filtered
	s.heal(bill)
	bill.UpdatedAt = s.now().Unix()

	if err := s.savePayments(ctx, bill, version); err != nil {
		return nil, err
	}

	s.broadcast("payment.deleted", map[string]interface{}{
		"billId":    bill.ID.String(),
		"paymentId": paymentID,
		"status":    bill.Status,
	})
	return s.paymentResponse(ctx, bill)
}

func (s *billingService) loadForPayment(ctx context.Context, billID string) (*model.Bill, int64, error) {
	id, err := uuid.Parse(billID)
	if err != nil {
		return nil, 0, apierror.Validationf("invalid bill id: %s", billID)
	}
	bill, err := s.billRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apierror.NotFoundf("bill not found")
		}
		return nil, 0, apierror.Storage(err, "failed to load bill")
	}
	return bill, bill.Version, nil
}

func (s *billingService) savePayments(ctx context.Context, bill *model.Bill, version int64) error {
	if err := s.billRepo.SaveWithVersion(ctx, bill, version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apierror.Conflictf("bill was modified concurrently, retry the request")
		}
		return apierror.Storage(err, "failed to save payments")
	}
	return nil
}

func (s *billingService) paymentResponse(ctx context.Context, bill *model.Bill) (*BillResponse, error) {
	items, err := s.loadItems(ctx, bill)
	if err != nil {
		return nil, err
	}
	resp := toBillResponse(bill, items)
	return &resp, nil
}
