// Prompt HTTP handlers.
//
// This file exposes REST endpoints for video prompt generation:
//   - POST /generate    (run the generation pipeline for new input)
//   - POST /regenerate  (produce a variation for a cached prompt)
//   - GET  /health      (liveness plus storage stats)
//
// Handlers are transport-thin: they parse the multipart/JSON input, call the
// application service, and translate results into HTTP responses. All
// validation beyond basic shape checks lives in the service layer.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/http/middleware"
	"github.com/tbourn/go-prompt-backend/internal/repo"
	"github.com/tbourn/go-prompt-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// PromptService defines the generation operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PromptService interface {
	// Generate runs the full pipeline for new input and persists the result.
	Generate(ctx context.Context, in services.GenerateInput) (*domain.Prompt, error)
	// Regenerate produces a variation for a previously generated prompt.
	Regenerate(ctx context.Context, id string) (*domain.Prompt, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for prompt generation. It depends on an
// abstract service interface to keep transport concerns separate from
// business logic; the DB handle is used only for health statistics.
type Handlers struct {
	svc     PromptService
	db      *gorm.DB
	started time.Time
}

// New constructs and returns a Handlers instance bound to the given service.
func New(svc PromptService, db *gorm.DB) *Handlers {
	return &Handlers{svc: svc, db: db, started: time.Now()}
}

//
// DTOs
//

// PromptResponse is the JSON envelope for a generated (or regenerated) prompt.
type PromptResponse struct {
	// ID identifies the prompt for follow-up regeneration requests.
	ID string `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Short is the concise prompt variant.
	Short string `json:"short" example:"A cat leaps across sunlit rooftops at golden hour."`
	// Long is the detailed prompt variant.
	Long string `json:"long"`
}

// RegenerateRequest is the JSON payload for requesting a variation.
type RegenerateRequest struct {
	// PromptID references a prompt returned by a previous /generate call.
	PromptID string `json:"promptId" binding:"required" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// HealthResponse reports liveness and storage statistics.
type HealthResponse struct {
	Status        string `json:"status" example:"ok"`
	Timestamp     string `json:"timestamp" example:"2026-01-15T10:30:00Z"`
	Uptime        string `json:"uptime" example:"1h2m3s"`
	Prompts       int64  `json:"prompts"`
	LastGenerated string `json:"last_generated,omitempty" example:"2026-01-15T10:30:00Z"`
}

//
// Handlers
//

// Generate accepts multipart form input and runs the generation pipeline.
//
// Form fields:
//   - type:  input kind, one of "text", "text-image", "image" (required)
//   - text:  user text (required for "text", optional otherwise)
//   - image: uploaded image file (required for "text-image" and "image")
func (h *Handlers) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	kind := c.PostForm("type")
	if kind == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type is required")
		return
	}
	if !domain.ValidInputKind(kind) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be one of: text, text-image, image")
		return
	}

	in := services.GenerateInput{
		Kind:      kind,
		Text:      c.PostForm("text"),
		UserIP:    c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read image upload")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			// MaxBytesReader surfaces here when the overall body cap is hit.
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "image upload too large")
			return
		}
		in.ImageBytes = data
		in.ImageMIME = fh.Header.Get("Content-Type")
	}

	p, err := h.svc.Generate(ctx, in)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusOK, PromptResponse{ID: p.ID, Short: p.ShortPrompt, Long: p.LongPrompt})
}

// Regenerate produces a variation for a previously generated prompt without
// the client resubmitting its original input.
func (h *Handlers) Regenerate(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "promptId required")
		return
	}
	// No shape check on the id: an id we never issued is indistinguishable
	// from an expired one, so both surface as 404 from the lookup.
	p, err := h.svc.Regenerate(ctx, req.PromptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusOK, PromptResponse{ID: p.ID, Short: p.ShortPrompt, Long: p.LongPrompt})
}

// Health reports liveness plus prompt storage statistics. Stats failures are
// tolerated so the endpoint stays useful as a pure liveness probe.
func (h *Handlers) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	if h.db != nil {
		if count, last, err := repo.PromptStats(c.Request.Context(), h.db); err == nil {
			resp.Prompts = count
			if last != nil {
				resp.LastGenerated = last.UTC().Format(time.RFC3339)
			}
		}
	}
	ok(c, http.StatusOK, resp)
}

// failFromService maps service-layer sentinel errors onto HTTP responses.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInputKind):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.ErrInvalidInputKind.Error())
	case errors.Is(err, services.ErrEmptyText):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.ErrEmptyText.Error())
	case errors.Is(err, services.ErrTextTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.ErrTextTooLong.Error())
	case errors.Is(err, services.ErrImageRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.ErrImageRequired.Error())
	case errors.Is(err, services.ErrMaliciousContent):
		fail(c, http.StatusBadRequest, ErrCodeContentRejected, services.ErrMaliciousContent.Error())
	case errors.Is(err, services.ErrImageTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, services.ErrImageTooLarge.Error())
	case errors.Is(err, services.ErrImageUnsupported):
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, services.ErrImageUnsupported.Error())
	case errors.Is(err, services.ErrImageProcessing):
		fail(c, http.StatusUnprocessableEntity, ErrCodeImageProcessing, services.ErrImageProcessing.Error())
	case errors.Is(err, services.ErrUpstream):
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, services.ErrUpstream.Error())
	case errors.Is(err, services.ErrNotFoundOrExpired):
		fail(c, http.StatusNotFound, ErrCodeNotFound, services.ErrNotFoundOrExpired.Error())
	default:
		// Internal detail stays in the log; clients get a fixed message.
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
