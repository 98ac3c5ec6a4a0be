package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDetectImageType(t *testing.T) {
	ct, ext, err := DetectImageType(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)

	ct, ext, err = DetectImageType([]byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F'})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, ".jpg", ext)

	_, _, err = DetectImageType([]byte("GIF89a......"))
	assert.ErrorIs(t, err, ErrImageType)

	_, _, err = DetectImageType([]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"))
	assert.ErrorIs(t, err, ErrImageType)
}

func newTestMinio(t *testing.T) *MinioImages {
	t.Helper()
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return NewMinioImages(client, "atelier-images")
}

func TestMinioImages_UploadRejects(t *testing.T) {
	m := newTestMinio(t)

	_, err := m.Upload(context.Background(), "p1", bytes.NewReader(pngHeader), MaxImageSize+1)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = m.Upload(context.Background(), "p1", strings.NewReader("pas une image"), 13)
	assert.ErrorIs(t, err, ErrImageType)
}

func TestMinioImages_URL(t *testing.T) {
	m := newTestMinio(t)

	u, err := m.URL(context.Background(), "products/p1/photo.jpg")
	require.NoError(t, err)
	assert.Contains(t, u, "/atelier-images/products/p1/photo.jpg")
	assert.Contains(t, u, "X-Amz-Expires=86400")
	assert.Contains(t, u, "X-Amz-Signature=")
}

func TestNoImages(t *testing.T) {
	var n NoImages
	_, err := n.Upload(context.Background(), "p1", bytes.NewReader(pngHeader), 16)
	assert.ErrorIs(t, err, ErrImagesDisabled)
	_, err = n.URL(context.Background(), "k")
	assert.ErrorIs(t, err, ErrImagesDisabled)
	assert.NoError(t, n.Delete(context.Background(), "k"))
}
