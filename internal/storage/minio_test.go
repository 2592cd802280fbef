package storage

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageHeader(contentType string, size int64) *multipart.FileHeader {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: "photo",
		Header:   header,
		Size:     size,
	}
}

func TestCheckImageMissing(t *testing.T) {
	err := CheckImage(nil)
	require.NotNil(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, err.Status)
	require.Len(t, err.Errors, 1)
	assert.Equal(t, "image", err.Errors[0].Field)
}

func TestCheckImageMimeTypes(t *testing.T) {
	for _, allowed := range []string{"image/png", "image/jpeg", "image/jpg"} {
		assert.Nil(t, CheckImage(imageHeader(allowed, 1024)), allowed)
	}
	for _, rejected := range []string{"image/gif", "application/pdf", "text/html", ""} {
		assert.NotNil(t, CheckImage(imageHeader(rejected, 1024)), rejected)
	}
}

func TestCheckImageSizeCap(t *testing.T) {
	assert.Nil(t, CheckImage(imageHeader("image/png", MaxImageSize)))
	assert.NotNil(t, CheckImage(imageHeader("image/png", MaxImageSize+1)))
}

func TestObjectFromURL(t *testing.T) {
	store := &ImageStore{bucket: "space-images", baseURL: "http://localhost:9000"}

	assert.Equal(t, "places/abc.png",
		store.objectFromURL("http://localhost:9000/space-images/places/abc.png"))

	// Foreign URLs and traversal attempts resolve to nothing.
	assert.Equal(t, "", store.objectFromURL("http://elsewhere/space-images/places/abc.png"))
	assert.Equal(t, "", store.objectFromURL("http://localhost:9000/space-images/../etc/passwd"))
	assert.Equal(t, "", store.objectFromURL(""))
}
