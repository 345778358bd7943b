package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"backend/internal/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore records puts and deletes in memory.
type fakeBlobStore struct {
	blobs      map[string][]byte
	failDelete bool
	deleted    []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.blobs[key] = data
	return "http://blobs.local/" + key, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	if f.failDelete {
		return errors.New("blob store unavailable")
	}
	f.deleted = append(f.deleted, key)
	delete(f.blobs, key)
	return nil
}

func (f *fakeBlobStore) SignedURL(key string, expiresIn int64) (string, error) {
	return fmt.Sprintf("http://blobs.local/%s?exp=%d", key, expiresIn), nil
}

func newImageFixture(t *testing.T) (*stubBillRepo, *stubItemRepo, *fakeBlobStore, *imageService) {
	t.Helper()
	billRepo := newStubBillRepo()
	itemRepo := newStubItemRepo()
	blobs := newFakeBlobStore()
	svc := NewImageService(billRepo, itemRepo, blobs).(*imageService)
	svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	svc.sleep = func(time.Duration) {}
	return billRepo, itemRepo, blobs, svc
}

func seedBillWithItem(t *testing.T, billRepo *stubBillRepo, itemRepo *stubItemRepo) (billID, itemID string) {
	t.Helper()
	billing := NewBillingService(billRepo, itemRepo, stubTx{}, nil).(*billingService)
	billing.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	bill, err := billing.CreateBill(context.Background(), CreateBillRequest{
		CustomerID:   "c1",
		BillingDate:  "2024-01-10",
		DeliveryDate: "2024-01-20",
		Items:        []BillItemInput{itemInput("Kurta", 1, "100")},
	})
	require.NoError(t, err)
	return bill.ID, bill.Items[0].ID
}

func pngPayload() string {
	return base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
}

func TestAttachStoresBlobAndAppendsURL(t *testing.T) {
	billRepo, itemRepo, blobs, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	resp, err := svc.Attach(context.Background(), billID, itemID, AttachImageRequest{
		ImageData:   pngPayload(),
		ImageName:   "front.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ImageID)
	assert.Contains(t, resp.ImageURL, resp.ImageID)
	assert.Contains(t, resp.ImageURL, "front.png")

	urls, err := svc.List(context.Background(), billID, itemID)
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, resp.ImageURL, urls[0])

	require.Len(t, blobs.blobs, 1)
}

func TestAttachRejectsMalformedBase64(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	_, err := svc.Attach(context.Background(), billID, itemID, AttachImageRequest{
		ImageData: "this is not base64!!!",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestAttachRequiresMatchingBillAndItem(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	billID, _ := seedBillWithItem(t, billRepo, itemRepo)
	_, otherItemID := seedBillWithItem(t, billRepo, itemRepo)

	// Item from another bill is rejected even though both exist.
	_, err := svc.Attach(context.Background(), billID, otherItemID, AttachImageRequest{
		ImageData: pngPayload(),
	})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestAttachFallbackWhenAppendUnsupported(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	itemRepo.failAppend = true

	resp, err := svc.Attach(context.Background(), billID, itemID, AttachImageRequest{
		ImageData: pngPayload(),
	})
	require.NoError(t, err)

	urls, err := svc.List(context.Background(), billID, itemID)
	require.NoError(t, err)
	assert.Equal(t, []string{resp.ImageURL}, urls)
}

func TestAttachFallbackRetriesTransientReads(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	url := "http://blobs.local/bills/b/items/i/img.png"

	itemRepo.findFails = 2 // first two fallback reads fail, third succeeds
	require.NoError(t, svc.appendFallback(context.Background(), mustID(t, itemID), url))

	urls, err := svc.List(context.Background(), billID, itemID)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, urls)
}

func TestAttachFallbackGivesUpAfterRetries(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	_, itemID := seedBillWithItem(t, billRepo, itemRepo)

	itemRepo.findFails = appendRetries
	err := svc.appendFallback(context.Background(), mustID(t, itemID), "http://blobs.local/bills/b/i.png")
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindStorage))
}

func TestAttachFallbackDoesNotDoubleAppend(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	url := "http://blobs.local/bills/x/items/y/already-there.png"
	require.NoError(t, itemRepo.SetReferenceImages(context.Background(), mustID(t, itemID), []string{url}, 0))

	require.NoError(t, svc.appendFallback(context.Background(), mustID(t, itemID), url))

	urls, err := svc.List(context.Background(), billID, itemID)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, urls)
}

func TestDetachRemovesMatchingURL(t *testing.T) {
	billRepo, itemRepo, blobs, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	resp, err := svc.Attach(context.Background(), billID, itemID, AttachImageRequest{
		ImageData: pngPayload(),
		ImageName: "front.png",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Detach(context.Background(), billID, itemID, resp.ImageID))

	urls, err := svc.List(context.Background(), billID, itemID)
	require.NoError(t, err)
	assert.Empty(t, urls)

	// Blob removed as well: its key starts at the bills/ segment.
	require.Len(t, blobs.deleted, 1)
	assert.True(t, strings.HasPrefix(blobs.deleted[0], "bills/"))
}

func TestDetachSucceedsWhenBlobDeleteFails(t *testing.T) {
	billRepo, itemRepo, blobs, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	resp, err := svc.Attach(context.Background(), billID, itemID, AttachImageRequest{
		ImageData: pngPayload(),
	})
	require.NoError(t, err)

	blobs.failDelete = true
	require.NoError(t, svc.Detach(context.Background(), billID, itemID, resp.ImageID))

	urls, err := svc.List(context.Background(), billID, itemID)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestDetachUnknownImage(t *testing.T) {
	billRepo, itemRepo, _, svc := newImageFixture(t)
	billID, itemID := seedBillWithItem(t, billRepo, itemRepo)

	err := svc.Detach(context.Background(), billID, itemID, "nope")
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}
