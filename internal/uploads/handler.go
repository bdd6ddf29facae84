package uploads

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/conventions"
	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/storage"
	"github.com/conventionhub/backend/pkg/validation"
)

// MediaStore persists convention media rows.
type MediaStore interface {
	List(ctx context.Context, conventionID uuid.UUID) ([]models.ConventionMedia, error)
	Create(ctx context.Context, m *models.ConventionMedia) error
	Delete(ctx context.Context, conventionID, id uuid.UUID) (*models.ConventionMedia, error)
}

// Presigner issues direct-to-bucket upload URLs. Only the S3 driver has one.
type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PublicObjectURL(key string) string
}

// Conventions resolves a convention the session may manage.
type Conventions interface {
	Manageable(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.Convention, error)
}

// UploadResponse describes a stored image.
type UploadResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Filename    string `json:"filename"`
}

// PresignRequest is the body for POST /uploads/presign.
type PresignRequest struct {
	Filename     string     `json:"filename" binding:"required,max=255"`
	ContentType  string     `json:"content_type" binding:"required"`
	ConventionID *uuid.UUID `json:"convention_id"`
}

// Handler serves image uploads and convention media.
type Handler struct {
	storage     storage.Storage
	presigner   Presigner
	conventions Conventions
	media       MediaStore
	maxBytes    int64
	logger      *zap.Logger
}

// NewHandler creates an upload handler. presigner may be nil.
func NewHandler(st storage.Storage, presigner Presigner, convs Conventions, media MediaStore, maxBytes int64, logger *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = storage.MaxImageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{storage: st, presigner: presigner, conventions: convs, media: media, maxBytes: maxBytes, logger: logger}
}

// checkConvention verifies the session may attach images to conventionID.
func (h *Handler) checkConvention(ctx context.Context, sess *access.Session, conventionID *uuid.UUID) error {
	if conventionID == nil {
		return nil
	}
	conv, err := h.conventions.Manageable(ctx, sess, *conventionID)
	if err != nil {
		return err
	}
	if conv.IsDeleted() {
		return apperrors.NotFound("convention not found")
	}
	return nil
}

// contentTypeOf returns the MIME type to store file with, or a validation error.
func (h *Handler) contentTypeOf(file *multipart.FileHeader) (string, error) {
	if file.Size > h.maxBytes {
		return "", apperrors.Validation(map[string]string{"file": fmt.Sprintf("must be at most %d MB", h.maxBytes/(1024*1024))})
	}
	header := file.Header.Get("Content-Type")
	if !storage.ValidateImageType(header, file.Filename) {
		return "", apperrors.Validation(map[string]string{"file": "must be a jpg, png, webp or gif image"})
	}
	if _, ok := storage.AllowedImageTypes[header]; ok {
		return header, nil
	}
	return storage.ContentTypeForFilename(file.Filename), nil
}

// store validates and saves the multipart "file" field under conventionID.
func (h *Handler) store(c *gin.Context, conventionID *uuid.UUID) (*UploadResponse, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.Validation(map[string]string{"file": "is required"})
	}
	contentType, err := h.contentTypeOf(file)
	if err != nil {
		return nil, err
	}
	owner := ""
	if conventionID != nil {
		owner = conventionID.String()
	}
	key := storage.ImageKey(owner, uuid.NewString()+storage.ExtensionFor(contentType, file.Filename))

	rc, err := file.Open()
	if err != nil {
		return nil, apperrors.Internal("failed to read file", err)
	}
	defer rc.Close()
	url, err := h.storage.Save(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		return nil, apperrors.Internal("failed to store file", err)
	}
	return &UploadResponse{URL: url, Key: key, ContentType: contentType, Size: file.Size, Filename: file.Filename}, nil
}

// multipartOverhead allows for form boundaries and small fields.
const multipartOverhead = 1 << 20

func (h *Handler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperrors.Validation(map[string]string{"convention_id": "must be a valid id"})
	}
	return &id, nil
}

// UploadImage handles POST /uploads/images (multipart: file, convention_id?).
func (h *Handler) UploadImage(c *gin.Context) {
	h.limitBody(c)
	sess := middleware.SessionFrom(c)
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	conventionID, err := parseOptionalID(c.PostForm("convention_id"))
	if err == nil {
		err = h.checkConvention(c.Request.Context(), sess, conventionID)
	}
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	res, err := h.store(c, conventionID)
	if err != nil {
		response.Error(c, h.logger, err, zap.String("user_id", sess.UserID.String()))
		return
	}
	response.Created(c, res)
}

// Presign handles POST /uploads/presign. It returns 404 unless storage is S3.
func (h *Handler) Presign(c *gin.Context) {
	if h.presigner == nil {
		response.NotFound(c, "direct uploads are not enabled")
		return
	}
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.logger, validation.FromBindError(err))
		return
	}
	if !storage.ValidateImageType(req.ContentType, req.Filename) {
		response.Error(c, h.logger, apperrors.Validation(map[string]string{"content_type": "must be a jpg, png, webp or gif image"}))
		return
	}
	if err := h.checkConvention(c.Request.Context(), middleware.SessionFrom(c), req.ConventionID); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	owner := ""
	if req.ConventionID != nil {
		owner = req.ConventionID.String()
	}
	key := storage.ImageKey(owner, uuid.NewString()+storage.ExtensionFor(req.ContentType, req.Filename))
	url, err := h.presigner.PresignUpload(c.Request.Context(), key, req.ContentType)
	if err != nil {
		response.Error(c, h.logger, apperrors.Internal("failed to presign upload", err), zap.String("key", key))
		return
	}
	response.OK(c, gin.H{"upload_url": url, "key": key, "public_url": h.presigner.PublicObjectURL(key)})
}

// ListMedia handles GET /conventions/:id/media.
func (h *Handler) ListMedia(c *gin.Context) {
	conv, err := conventions.FromContext(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	list, err := h.media.List(c.Request.Context(), conv.ID)
	if err != nil {
		response.Error(c, h.logger, err, zap.String("convention_id", conv.ID.String()))
		return
	}
	response.OK(c, list)
}

// AddMedia handles POST /conventions/:id/media (multipart: file, caption?).
func (h *Handler) AddMedia(c *gin.Context) {
	h.limitBody(c)
	conv, err := conventions.FromContext(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	res, err := h.store(c, &conv.ID)
	if err != nil {
		response.Error(c, h.logger, err, zap.String("convention_id", conv.ID.String()))
		return
	}
	m := &models.ConventionMedia{
		ConventionID: conv.ID,
		URL:          res.URL,
		StorageKey:   res.Key,
		MediaType:    res.ContentType,
		Caption:      c.PostForm("caption"),
	}
	if err := h.media.Create(c.Request.Context(), m); err != nil {
		h.removeObject(c.Request.Context(), res.Key)
		response.Error(c, h.logger, err, zap.String("convention_id", conv.ID.String()))
		return
	}
	response.Created(c, m)
}

// DeleteMedia handles DELETE /conventions/:id/media/:itemId.
func (h *Handler) DeleteMedia(c *gin.Context) {
	conv, err := conventions.FromContext(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	id, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		response.BadRequest(c, "invalid media id")
		return
	}
	m, err := h.media.Delete(c.Request.Context(), conv.ID, id)
	if err != nil {
		response.Error(c, h.logger, err, zap.String("convention_id", conv.ID.String()))
		return
	}
	h.removeObject(c.Request.Context(), m.StorageKey)
	response.NoContent(c)
}

func (h *Handler) removeObject(ctx context.Context, key string) {
	if err := h.storage.Delete(ctx, key); err != nil {
		h.logger.Warn("delete stored object", zap.String("key", key), zap.Error(err))
	}
}
