package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/humidor/backend/internal/domain"
	"github.com/humidor/backend/internal/logging"
	"github.com/humidor/backend/internal/usecase"
	"github.com/rs/zerolog"
)

// RetakeMessage is shown when a scan photo is over the size limit
const RetakeMessage = "That photo is too large for me to look at. Please retake it a little closer, or crop it to the band, and try again."

// bodyOverhead allows for the JSON envelope around a base64 image
const bodyOverhead = 64 << 10

// Handler holds dependencies for HTTP handlers
type Handler struct {
	assistant     *usecase.AssistantService
	catalog       domain.CatalogRepository
	maxImageBytes int64
	logger        zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	assistant *usecase.AssistantService,
	catalog domain.CatalogRepository,
	maxImageBytes int64,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		assistant:     assistant,
		catalog:       catalog,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "humidor-backend",
		"version": "1.0.0",
	})
}

// Chat answers a customer message
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp, err := h.assistant.Chat(c.Request.Context(), &req)
	if err != nil {
		h.assistantError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Scan identifies a cigar from a photo of its band
func (h *Handler) Scan(c *gin.Context) {
	// base64 grows payloads by a third
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes*4/3+bodyOverhead)

	var req domain.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.imageTooLarge(c)
			return
		}
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if int64(usecase.DecodedImageSize(req.Image)) > h.maxImageBytes {
		h.imageTooLarge(c)
		return
	}

	resp, err := h.assistant.Scan(c.Request.Context(), &req)
	if err != nil {
		h.assistantError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListInventory returns every catalog entry
func (h *Handler) ListInventory(c *gin.Context) {
	entries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.catalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cigars": entries,
		"count":  len(entries),
	})
}

// GetInventory returns one catalog entry
func (h *Handler) GetInventory(c *gin.Context) {
	entry, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.catalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CreateInventory adds a catalog entry, generating an id when none is given
func (h *Handler) CreateInventory(c *gin.Context) {
	var entry domain.CatalogEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	} else if _, err := h.catalog.Get(c.Request.Context(), entry.ID); err == nil {
		respondError(c, http.StatusConflict, fmt.Sprintf("catalog entry %q already exists", entry.ID))
		return
	} else if !errors.Is(err, domain.ErrCatalogEntryNotFound) {
		h.catalogError(c, err)
		return
	}

	if err := h.catalog.Upsert(c.Request.Context(), entry); err != nil {
		h.catalogError(c, err)
		return
	}

	logger := h.requestLogger(c)
	logger.Info().Str("id", entry.ID).Msg("catalog entry created")
	c.JSON(http.StatusCreated, entry)
}

// UpdateInventory replaces an existing catalog entry
func (h *Handler) UpdateInventory(c *gin.Context) {
	var entry domain.CatalogEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	id := c.Param("id")
	if entry.ID != "" && entry.ID != id {
		respondError(c, http.StatusBadRequest, "id in body does not match path")
		return
	}
	entry.ID = id

	if _, err := h.catalog.Get(c.Request.Context(), id); err != nil {
		h.catalogError(c, err)
		return
	}
	if err := h.catalog.Upsert(c.Request.Context(), entry); err != nil {
		h.catalogError(c, err)
		return
	}

	logger := h.requestLogger(c)
	logger.Info().Str("id", id).Int("inventory_count", entry.InventoryCount).Msg("catalog entry updated")
	c.JSON(http.StatusOK, entry)
}

// DeleteInventory removes a catalog entry
func (h *Handler) DeleteInventory(c *gin.Context) {
	id := c.Param("id")
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.catalogError(c, err)
		return
	}

	logger := h.requestLogger(c)
	logger.Info().Str("id", id).Msg("catalog entry deleted")
	c.Status(http.StatusNoContent)
}

// Error codes returned by chat and scan. The underlying error is only logged.
const (
	errAssistantUnavailable = "assistant_unavailable"
	errInvalidRequest       = "invalid_request"
)

// assistantError maps a chat/scan failure. The customer always gets an in-character message.
func (h *Handler) assistantError(c *gin.Context, err error) {
	status, code := http.StatusServiceUnavailable, errAssistantUnavailable
	if errors.Is(err, domain.ErrInvalidRequest) {
		status, code = http.StatusBadRequest, errInvalidRequest
	} else if errors.Is(err, domain.ErrImageTooLarge) {
		h.imageTooLarge(c)
		return
	}

	logger := h.requestLogger(c)
	logger.Error().Err(err).Int("status", status).Msg("assistant request failed")
	c.JSON(status, gin.H{
		"message": usecase.FallbackMessage,
		"cigars":  []domain.DisplayCigar{},
		"error":   code,
	})
}

func (h *Handler) imageTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"message": RetakeMessage,
		"cigars":  []domain.DisplayCigar{},
		"error":   domain.ErrImageTooLarge.Error(),
	})
}

func (h *Handler) catalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCatalogEntryNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidCatalogEntry):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger := h.requestLogger(c)
		logger.Error().Err(err).Msg("catalog operation failed")
		respondError(c, http.StatusInternalServerError, "catalog unavailable")
	}
}

func (h *Handler) requestLogger(c *gin.Context) zerolog.Logger {
	return logging.FromContext(c.Request.Context(), h.logger)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
