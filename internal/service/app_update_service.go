package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"backend/internal/apierror"
	"backend/internal/blobstore"
	"backend/internal/model"
	"backend/internal/repository"
)

// Download links stay valid for one hour.
const downloadExpirySeconds int64 = 3600

type RegisterVersionRequest struct {
	Platform     string   `json:"platform" binding:"required"`
	Component    string   `json:"component" binding:"required"`
	Version      string   `json:"version" binding:"required"`
	Description  string   `json:"description"`
	Size         int64    `json:"size"`
	Critical     bool     `json:"critical"`
	Checksum     string   `json:"checksum"`
	Dependencies []string `json:"dependencies"`
}

type AppVersionResponse struct {
	ID           string    `json:"id"`
	Version      string    `json:"version"`
	Platform     string    `json:"platform"`
	Component    string    `json:"component"`
	Description  string    `json:"description"`
	Size         int64     `json:"size"`
	Critical     bool      `json:"critical"`
	Checksum     string    `json:"checksum"`
	Dependencies []string  `json:"dependencies"`
	ReleaseDate  time.Time `json:"releaseDate"`
}

type UpdateCheckResponse struct {
	HasUpdates bool                 `json:"has_updates"`
	Updates    []AppVersionResponse `json:"updates"`
}

type DownloadResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AppUpdateService tracks released builds of the companion mobile app and
// hands out time-limited download links for update packages.
type AppUpdateService interface {
	RegisterVersion(ctx context.Context, req RegisterVersionRequest) (*AppVersionResponse, error)
	CheckForUpdates(ctx context.Context, platform, component, currentVersion string) (*UpdateCheckResponse, error)
	Download(ctx context.Context, platform, component, version string) (*DownloadResponse, error)
}

type appUpdateService struct {
	repo  repository.AppVersionRepository
	blobs blobstore.Store
	now   func() time.Time
}

func NewAppUpdateService(repo repository.AppVersionRepository, blobs blobstore.Store) AppUpdateService {
	return &appUpdateService{repo: repo, blobs: blobs, now: time.Now}
}

func (s *appUpdateService) RegisterVersion(ctx context.Context, req RegisterVersionRequest) (*AppVersionResponse, error) {
	if req.Platform == "" || req.Component == "" || req.Version == "" {
		return nil, apierror.Validationf("platform, component and version are required")
	}

	now := s.now()
	entry := model.AppVersion{
		ID:           versionKey(req.Platform, req.Component, req.Version),
		Version:      req.Version,
		Platform:     req.Platform,
		Component:    req.Component,
		Description:  req.Description,
		Size:         req.Size,
		Critical:     req.Critical,
		Checksum:     req.Checksum,
		Dependencies: req.Dependencies,
		ReleaseDate:  now,
		CreatedAt:    now,
	}
	if err := s.repo.Upsert(ctx, &entry); err != nil {
		return nil, apierror.Storage(err, "failed to register app version")
	}

	resp := toVersionResponse(&entry)
	return &resp, nil
}

func (s *appUpdateService) CheckForUpdates(ctx context.Context, platform, component, currentVersion string) (*UpdateCheckResponse, error) {
	if platform == "" || component == "" || currentVersion == "" {
		return nil, apierror.Validationf("platform, component and version are required")
	}

	all, err := s.repo.FindByPlatformComponent(ctx, platform, component)
	if err != nil {
		return nil, apierror.Storage(err, "failed to load app versions")
	}

	newer := make([]model.AppVersion, 0, len(all))
	for i := range all {
		if isVersionNewer(all[i].Version, currentVersion) {
			newer = append(newer, all[i])
		}
	}
	sort.Slice(newer, func(i, j int) bool {
		return isVersionNewer(newer[i].Version, newer[j].Version)
	})

	updates := make([]AppVersionResponse, 0, len(newer))
	for i := range newer {
		updates = append(updates, toVersionResponse(&newer[i]))
	}
	return &UpdateCheckResponse{HasUpdates: len(updates) > 0, Updates: updates}, nil
}

func (s *appUpdateService) Download(ctx context.Context, platform, component, version string) (*DownloadResponse, error) {
	if platform == "" || component == "" || version == "" {
		return nil, apierror.Validationf("platform, component and version are required")
	}

	key := fmt.Sprintf("mobile/updates/%s/%s/%s/update.zip", platform, component, version)
	url, err := s.blobs.SignedURL(key, downloadExpirySeconds)
	if err != nil {
		return nil, apierror.Storage(err, "failed to sign download url")
	}
	expiresAt := s.now().Add(time.Duration(downloadExpirySeconds) * time.Second)
	return &DownloadResponse{DownloadURL: url, ExpiresAt: expiresAt}, nil
}

func versionKey(platform, component, version string) string {
	return platform + "#" + component + "#" + version
}

// isVersionNewer compares dotted numeric versions part by part. A version
// with any non-numeric part is never considered newer.
func isVersionNewer(candidate, current string) bool {
	cand, ok := parseVersion(candidate)
	if !ok {
		return false
	}
	curr, ok := parseVersion(current)
	if !ok {
		return false
	}
	for i := 0; i < len(cand) || i < len(curr); i++ {
		var a, b int
		if i < len(cand) {
			a = cand[i]
		}
		if i < len(curr) {
			b = curr[i]
		}
		if a != b {
			return a > b
		}
	}
	return false
}

func parseVersion(v string) ([]int, bool) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

func toVersionResponse(v *model.AppVersion) AppVersionResponse {
	return AppVersionResponse{
		ID:           v.ID,
		Version:      v.Version,
		Platform:     v.Platform,
		Component:    v.Component,
		Description:  v.Description,
		Size:         v.Size,
		Critical:     v.Critical,
		Checksum:     v.Checksum,
		Dependencies: v.Dependencies,
		ReleaseDate:  v.ReleaseDate,
	}
}
