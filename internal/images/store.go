package images

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps uploaded images. Images are advisory artifacts: nothing about
// user/place consistency depends on them.
type Store interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
	Remove(ctx context.Context, ref string) error
}

var allowedExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
}

// objectName derives a collision-free name that keeps a recognisable
// extension.
func objectName(filename, contentType string) (string, error) {
	ext, ok := allowedExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
	if e := strings.ToLower(filepath.Ext(filename)); e == ".jpeg" || e == ".jpg" || e == ".png" {
		if e == ".jpeg" {
			e = ".jpg"
		}
		ext = e
	}
	return uuid.New().String() + ext, nil
}

func IsSupportedType(contentType string) bool {
	_, ok := allowedExtensions[strings.ToLower(contentType)]
	return ok
}
