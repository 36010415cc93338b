// Package blobstore stores the image attachments referenced by case records.
// It defines the BlobStore interface, an in-memory implementation suitable
// for testing and development, and Echo HTTP handlers for multipart upload,
// download, metadata retrieval, deletion, and per-case listing.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/radcase/radcase/internal/platform/auth"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
	ErrMissingCaseID      = errors.New("case id is required")
)

// MaxFileSize is the maximum allowed blob size in bytes (100 MB). Plain film
// scans rarely exceed 20 MB but CT series exports can.
const MaxFileSize = 100 * 1024 * 1024

// AllowedContentTypes lists the MIME types accepted for case imagery.
var AllowedContentTypes = map[string]bool{
	"image/png":         true,
	"image/jpeg":        true,
	"image/dicom":       true,
	"application/dicom": true,
	"application/pdf":   true,
}

// BlobMetadata describes a stored image attachment.
type BlobMetadata struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CaseID      string    `json:"case_id"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

// BlobStore defines the contract for image storage backends.
type BlobStore interface {
	Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error)
	Delete(ctx context.Context, id string) error
	GetMetadata(ctx context.Context, id string) (*BlobMetadata, error)
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]*BlobMetadata, int, error)
}

type storedBlob struct {
	metadata BlobMetadata
	content  []byte
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore for testing/dev.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

// NewInMemoryBlobStore returns a ready-to-use InMemoryBlobStore.
func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{
		blobs: make(map[string]*storedBlob),
	}
}

// Upload validates inputs, reads the content, computes a SHA-256 hash, and
// stores the blob in memory. Content type validation happens here rather than
// in the handler so that every backend enforces the same rules.
func (s *InMemoryBlobStore) Upload(_ context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if meta.CaseID == "" {
		return nil, ErrMissingCaseID
	}
	if !AllowedContentTypes[meta.ContentType] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, meta.ContentType)
	}

	// Read content into memory so we can measure size and compute hash.
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.blobs[meta.ID] = &storedBlob{
		metadata: meta,
		content:  data,
	}
	s.mu.Unlock()

	out := meta // copy
	return &out, nil
}

// Download returns an io.ReadCloser over the blob content and its metadata.
func (s *InMemoryBlobStore) Download(_ context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	meta := blob.metadata // copy
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// Delete removes a blob by ID.
func (s *InMemoryBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// GetMetadata returns blob metadata without content.
func (s *InMemoryBlobStore) GetMetadata(_ context.Context, id string) (*BlobMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrBlobNotFound
	}

	meta := blob.metadata // copy
	return &meta, nil
}

// ListByCase returns the attachments of a given case record, newest first,
// along with the total count.
func (s *InMemoryBlobStore) ListByCase(_ context.Context, caseID string, limit, offset int) ([]*BlobMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*BlobMetadata
	for _, b := range s.blobs {
		if b.metadata.CaseID != caseID {
			continue
		}
		m := b.metadata // copy
		matched = append(matched, &m)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], total, nil
}

// listResponse is the JSON envelope returned by the list endpoint.
type listResponse struct {
	Items []*BlobMetadata `json:"items"`
	Total int             `json:"total"`
}

// BlobHandler provides Echo HTTP handlers for image attachment operations.
type BlobHandler struct {
	store BlobStore
}

// NewBlobHandler creates a new BlobHandler.
func NewBlobHandler(store BlobStore) *BlobHandler {
	return &BlobHandler{store: store}
}

// RegisterRoutes mounts image routes on the supplied Echo group. Uploading
// and deleting imagery is technologist work; reading is open to both roles.
func (h *BlobHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/images/upload", h.handleUpload, auth.RequireRole(auth.RoleRT))
	g.GET("/images/case/:caseId", h.handleListByCase)
	g.GET("/images/:id/metadata", h.handleGetMetadata)
	g.GET("/images/:id", h.handleDownload)
	g.DELETE("/images/:id", h.handleDelete, auth.RequireRole(auth.RoleRT))
}

func (h *BlobHandler) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	meta := BlobMetadata{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		CaseID:      c.FormValue("case_id"),
		CreatedBy:   auth.UserIDFromContext(c.Request().Context()),
	}

	result, err := h.store.Upload(c.Request().Context(), meta, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingFileName), errors.Is(err, ErrMissingCaseID):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrInvalidContentType):
			return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *BlobHandler) handleDownload(c echo.Context) error {
	id := c.Param("id")

	rc, meta, err := h.store.Download(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *BlobHandler) handleGetMetadata(c echo.Context) error {
	id := c.Param("id")

	meta, err := h.store.GetMetadata(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, meta)
}

func (h *BlobHandler) handleDelete(c echo.Context) error {
	id := c.Param("id")

	err := h.store.Delete(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *BlobHandler) handleListByCase(c echo.Context) error {
	caseID := c.Param("caseId")
	limit := intParam(c, "limit", 20)
	offset := intParam(c, "offset", 0)

	items, total, err := h.store.ListByCase(c.Request().Context(), caseID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if items == nil {
		items = []*BlobMetadata{}
	}

	return c.JSON(http.StatusOK, listResponse{Items: items, Total: total})
}

func intParam(c echo.Context, name string, defaultVal int) int {
	v := c.QueryParam(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
