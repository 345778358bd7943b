package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalStore keeps blobs on the local filesystem under a base directory and
// serves them from baseURL. Keys are slash-separated paths; path traversal is
// rejected.
type LocalStore struct {
	baseDir string
	baseURL string
	secret  []byte
}

func NewLocalStore(baseDir, baseURL, secret string) *LocalStore {
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + strings.TrimLeft(key, "/"), nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// SignedURL appends an HMAC token scoped to the key so the static file
// gateway can verify the download grant without a database hit.
func (s *LocalStore) SignedURL(key string, expiresIn int64) (string, error) {
	claims := jwt.MapClaims{
		"key": key,
		"exp": time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s?token=%s", s.baseURL, strings.TrimLeft(key, "/"), token), nil
}

// VerifySignedURL checks a token produced by SignedURL and returns the key it
// grants access to.
func (s *LocalStore) VerifySignedURL(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid download token")
	}
	key, _ := claims["key"].(string)
	if key == "" {
		return "", fmt.Errorf("download token missing key")
	}
	return key, nil
}
