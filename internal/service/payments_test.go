package service

import (
	"context"
	"testing"

	"backend/internal/apierror"
	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPaymentDerivesAmounts(t *testing.T) {
	_, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "")

	bill, err := svc.AddPayment(context.Background(), created.ID, PaymentInput{
		Amount:        d("60"),
		PaymentDate:   "2024-01-12",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.True(t, bill.PaidAmount.Equal(d("60")))
	assert.True(t, bill.Outstanding.Equal(d("40")))
	assert.Equal(t, model.BillStatusPartiallyPaid, bill.Status)
	require.Len(t, bill.Payments, 1)
	assert.Equal(t, "cash", bill.Payments[0].PaymentMethod)
}

func TestAddPaymentRejectsNonPositiveAmount(t *testing.T) {
	_, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "")

	_, err := svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("0")})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	_, err = svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("-5")})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestAddPaymentCeilingAgainstOutstanding(t *testing.T) {
	_, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "70")

	_, err := svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("30.01")})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	bill, err := svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("30")})
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusFullyPaid, bill.Status)
	assert.True(t, bill.Outstanding.Equal(d("0")))
}

func TestAddPaymentVersionConflict(t *testing.T) {
	billRepo, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "")

	billRepo.forceConflict = true
	_, err := svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("10")})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestAddPaymentBumpsVersion(t *testing.T) {
	billRepo, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "")

	_, err := svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("10")})
	require.NoError(t, err)
	_, err = svc.AddPayment(context.Background(), created.ID, PaymentInput{Amount: d("10")})
	require.NoError(t, err)

	stored := billRepo.bills[mustID(t, created.ID)]
	assert.Equal(t, int64(2), stored.Version)
	assert.Len(t, stored.Payments, 2)
}

func TestUpdatePaymentSkipsCeiling(t *testing.T) {
	_, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "50")
	paymentID := created.Payments[0].ID

	// Corrections may push the paid sum past the total; that is allowed.
	bill, err := svc.UpdatePayment(context.Background(), created.ID, paymentID, PaymentInput{
		Amount:      d("150"),
		PaymentDate: "2024-01-15",
	})
	require.NoError(t, err)

	assert.True(t, bill.PaidAmount.Equal(d("150")))
	assert.True(t, bill.Outstanding.Equal(d("-50")))
	assert.Equal(t, model.BillStatusFullyPaid, bill.Status)
	require.Len(t, bill.Payments, 1)
	assert.Equal(t, "2024-01-15", bill.Payments[0].PaymentDate)
	// Original createdAt survives the replace.
	assert.Equal(t, created.Payments[0].CreatedAt, bill.Payments[0].CreatedAt)
}

func TestUpdatePaymentNotFound(t *testing.T) {
	_, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "50")

	_, err := svc.UpdatePayment(context.Background(), created.ID, "missing", PaymentInput{Amount: d("10")})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestDeletePaymentRecomputesFromRemaining(t *testing.T) {
	_, _, svc := newBillingFixture(t)

	created, err := svc.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 1, "100")},
		Payments:     []PaymentInput{{Amount: d("40")}, {Amount: d("60")}},
	})
	require.NoError(t, err)
	require.Equal(t, model.BillStatusFullyPaid, created.Status)

	bill, err := svc.DeletePayment(context.Background(), created.ID, created.Payments[0].ID)
	require.NoError(t, err)

	assert.True(t, bill.PaidAmount.Equal(d("60")))
	assert.True(t, bill.Outstanding.Equal(d("40")))
	assert.Equal(t, model.BillStatusPartiallyPaid, bill.Status)
	require.Len(t, bill.Payments, 1)
}

func TestDeletePaymentNotFound(t *testing.T) {
	_, _, svc := newBillingFixture(t)
	created := seedBill(t, svc, "c1", "", "50")

	_, err := svc.DeletePayment(context.Background(), created.ID, "missing")
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}
