package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend/internal/apierror"
	"backend/internal/blobstore"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// --- DTOs ---

type AttachImageRequest struct {
	ImageData   string `json:"imageData" binding:"required"` // base64 payload
	ImageName   string `json:"imageName"`
	ContentType string `json:"contentType"`
}

type AttachImageResponse struct {
	ImageID  string `json:"imageId"`
	ImageURL string `json:"imageUrl"`
}

// --- Interface ---

type ImageService interface {
	Attach(ctx context.Context, billID, itemID string, req AttachImageRequest) (*AttachImageResponse, error)
	List(ctx context.Context, billID, itemID string) ([]string, error)
	Detach(ctx context.Context, billID, itemID, imageID string) error
}

type imageService struct {
	billRepo repository.BillRepository
	itemRepo repository.BillItemRepository
	blobs    blobstore.Store
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewImageService(billRepo repository.BillRepository, itemRepo repository.BillItemRepository, blobs blobstore.Store) ImageService {
	return &imageService{
		billRepo: billRepo,
		itemRepo: itemRepo,
		blobs:    blobs,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

const appendRetries = 3

func (s *imageService) Attach(ctx context.Context, billID, itemID string, req AttachImageRequest) (*AttachImageResponse, error) {
	item, err := s.resolveItem(ctx, billID, itemID)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(req.ImageData)
	if err != nil {
		return nil, apierror.Validationf("image data is not valid base64")
	}

	imageID := uuid.NewString()
	name := req.ImageName
	if name == "" {
		name = "image"
	}
	key := fmt.Sprintf("bills/%s/items/%s/%s-%s", billID, itemID, imageID, name)

	url, err := s.blobs.Put(ctx, key, data, req.ContentType)
	if err != nil {
		return nil, apierror.Storage(err, "failed to store image")
	}

	nowUnix := s.now().Unix()

	// Primary path: single-statement append, safe under concurrent attaches.
	if err := s.itemRepo.AppendReferenceImage(ctx, item.ID, url, nowUnix); err != nil {
		if appendErr := s.appendFallback(ctx, item.ID, url); appendErr != nil {
			return nil, appendErr
		}
	}

	return &AttachImageResponse{ImageID: imageID, ImageURL: url}, nil
}

// appendFallback re-reads the item, checks the URL is not already present
// (a retried request must not double-append), appends in memory and writes
// the whole list back. Retried with linearly increasing backoff.
func (s *imageService) appendFallback(ctx context.Context, itemID uuid.UUID, url string) error {
	var lastErr error
	for attempt := 1; attempt <= appendRetries; attempt++ {
		item, err := s.itemRepo.FindByID(ctx, itemID)
		if err != nil {
			lastErr = err
		} else {
			urls := append([]string{}, item.ReferenceImages...)
			present := false
			for _, u := range urls {
				if u == url {
					present = true
					break
				}
			}
			if !present {
				urls = append(urls, url)
			}
			if err := s.itemRepo.SetReferenceImages(ctx, itemID, urls, s.now().Unix()); err != nil {
				lastErr = err
			} else {
				return nil
			}
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Str("item_id", itemID.String()).
			Msg("reference image append fallback failed")
		if attempt < appendRetries {
			s.sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}
	return apierror.Storage(lastErr, "failed to record image on bill item")
}

func (s *imageService) List(ctx context.Context, billID, itemID string) ([]string, error) {
	item, err := s.resolveItem(ctx, billID, itemID)
	if err != nil {
		return nil, err
	}
	return item.ReferenceImages, nil
}

func (s *imageService) Detach(ctx context.Context, billID, itemID, imageID string) error {
	item, err := s.resolveItem(ctx, billID, itemID)
	if err != nil {
		return err
	}

	// URLs embed the image id, so a substring match locates the entry.
	var target string
	kept := make([]string, 0, len(item.ReferenceImages))
	for _, u := range item.ReferenceImages {
		if target == "" && strings.Contains(u, imageID) {
			target = u
			continue
		}
		kept = append(kept, u)
	}
	if target == "" {
		return apierror.NotFoundf("image not found on bill item")
	}

	// Blob delete is best effort: the record update proceeds regardless.
	if key, ok := s.keyFromURL(target); ok {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to delete image blob")
		}
	}

	if err := s.itemRepo.SetReferenceImages(ctx, item.ID, kept, s.now().Unix()); err != nil {
		return apierror.Storage(err, "failed to update reference images")
	}
	return nil
}

// keyFromURL recovers the storage key from a recorded URL. Keys always start
// at the bills/ segment.
func (s *imageService) keyFromURL(url string) (string, bool) {
	idx := strings.Index(url, "bills/")
	if idx < 0 {
		return "", false
	}
	return url[idx:], true
}

// resolveItem validates that both the bill and the item exist and that the
// item belongs to the bill.
func (s *imageService) resolveItem(ctx context.Context, billID, itemID string) (*model.BillItem, error) {
	bid, err := uuid.Parse(billID)
	if err != nil {
		return nil, apierror.Validationf("invalid bill id: %s", billID)
	}
	iid, err := uuid.Parse(itemID)
	if err != nil {
		return nil, apierror.Validationf("invalid item id: %s", itemID)
	}

	if _, err := s.billRepo.FindByID(ctx, bid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("bill not found")
		}
		return nil, apierror.Storage(err, "failed to load bill")
	}

	item, err := s.itemRepo.FindByID(ctx, iid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("bill item not found")
		}
		return nil, apierror.Storage(err, "failed to load bill item")
	}
	if item.BillID != bid {
		return nil, apierror.NotFoundf("bill item not found on this bill")
	}
	return item, nil
}
