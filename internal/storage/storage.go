package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// PathPrefix is where servable backends expose stored images.
const PathPrefix = "/images/"

var (
	ErrNotFound        = errors.New("image not found")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrEmpty           = errors.New("no image data")
)

// Store persists drawings and returns the reference clients load them from.
type Store interface {
	Put(ctx context.Context, roomID string, data []byte, contentType string) (string, error)
}

// Reader is implemented by backends that serve their own images under
// PathPrefix.
type Reader interface {
	Get(ctx context.Context, key string) (Object, error)
}

type Object struct {
	Data        []byte
	ContentType string
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Sniff checks the bytes really are an accepted image and returns the
// detected content type. The declared type is ignored.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}

// Validate sniffs data and enforces the size limit.
func Validate(data []byte, maxBytes int) (string, error) {
	if maxBytes > 0 && len(data) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), maxBytes)
	}
	return Sniff(data)
}

// DecodeDataURL accepts a "data:image/png;base64,..." URL or bare base64.
func DecodeDataURL(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, ErrEmpty
	}
	parts := strings.SplitN(data, ",", 2)
	if len(parts) == 2 {
		data = parts[1]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return decoded, nil
}

// newKey names an object after its room so stored drawings group together.
func newKey(roomID, contentType string) string {
	ext := extensions[contentType]
	if ext == "" {
		ext = ".png"
	}
	room := strings.ToLower(strings.TrimSpace(roomID))
	if room == "" {
		room = "upload"
	}
	return room + "-" + uuid.NewString() + ext
}

// validKey guards Get against path tricks; keys are always flat names.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, "/\\") && !strings.Contains(key, "..")
}
