package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const (
	MaxImageSize   = 5 << 20
	SignedURLTTL   = 24 * time.Hour
	sniffLen       = 512
	productsPrefix = "products/"
)

var (
	ErrImageTooLarge  = errors.New("image trop volumineuse (5 Mo max)")
	ErrImageType      = errors.New("format d'image non supporté (jpeg, png, webp)")
	ErrImagesDisabled = errors.New("stockage d'images non configuré")
	allowedImageTypes = map[string]string{"image/jpeg": ".jpg", "image/png": ".png", "image/webp": ".webp"}
)

// ImageStore stocke les photos produits et signe leurs URLs
type ImageStore interface {
	Upload(ctx context.Context, productID string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

type MinioImages struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewMinioImages(client *minio.Client, bucket string) *MinioImages {
	return &MinioImages{client: client, bucket: bucket, ttl: SignedURLTTL}
}

// DetectImageType renvoie le content-type et l'extension à partir des premiers octets
func DetectImageType(head []byte) (string, string, error) {
	ct := http.DetectContentType(head)
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return "", "", ErrImageType
	}
	return ct, ext, nil
}

func (m *MinioImages) Upload(ctx context.Context, productID string, r io.Reader, size int64) (string, error) {
	if size > MaxImageSize {
		return "", ErrImageTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]

	ct, ext, err := DetectImageType(head)
	if err != nil {
		return "", err
	}

	key := productsPrefix + productID + "/" + uuid.NewString() + ext
	body := io.MultiReader(bytes.NewReader(head), r)
	_, err = m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  ct,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("upload MinIO %s: %w", key, err)
	}
	return key, nil
}

func (m *MinioImages) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// URL génère une URL signée valable 24h
func (m *MinioImages) URL(ctx context.Context, key string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// NoImages remplace MinIO quand il n'est pas configuré
type NoImages struct{}

func (NoImages) Upload(context.Context, string, io.Reader, int64) (string, error) {
	return "", ErrImagesDisabled
}
func (NoImages) Delete(context.Context, string) error { return nil }
func (NoImages) URL(context.Context, string) (string, error) {
	return "", ErrImagesDisabled
}
