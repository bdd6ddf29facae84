package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	// MaxImageSize is the default maximum upload size for images (10MB).
	MaxImageSize = 10 * 1024 * 1024
	// FolderConventions is the key prefix for convention images.
	FolderConventions = "conventions"
	// FolderGeneral is the key prefix for images not tied to a convention.
	FolderGeneral = "general"
)

// Allowed image MIME types and extensions.
var (
	AllowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	AllowedImageExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
	}
)

// Storage stores objects and returns their public URL.
type Storage interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// ValidateImageType returns true if the content type or extension is an allowed image.
func ValidateImageType(contentType, filename string) bool {
	if contentType != "" {
		if _, ok := AllowedImageTypes[strings.ToLower(contentType)]; ok {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext != "" {
		if _, ok := AllowedImageExtensions[ext]; ok {
			return true
		}
	}
	return false
}

// ContentTypeForFilename returns the MIME type for an image filename extension.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := AllowedImageExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ExtensionFor picks the file extension for an upload.
func ExtensionFor(contentType, filename string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		if _, ok := AllowedImageExtensions[ext]; ok {
			return ext
		}
	}
	if ext, ok := AllowedImageTypes[strings.ToLower(contentType)]; ok {
		return ext
	}
	return ""
}

// ImageKey returns the object key for an image: conventions/{id}/{name} or general/{name}.
func ImageKey(conventionID, name string) string {
	if conventionID == "" {
		return path.Join(FolderGeneral, path.Base(name))
	}
	return path.Join(FolderConventions, conventionID, path.Base(name))
}

// Config selects and configures a Storage implementation.
type Config struct {
	Driver        string
	LocalDir      string
	PublicBaseURL string
	S3            S3Config
}

// New builds the configured Storage.
func New(ctx context.Context, cfg Config, opts ...Option) (Storage, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocal(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		o := options{}
		for _, fn := range opts {
			fn(&o)
		}
		return NewS3(ctx, cfg.S3, o.logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
