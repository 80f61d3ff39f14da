// Package services – PromptService
//
// This file implements PromptService, the application-level component that
// owns the prompt generation pipeline. It validates inputs, applies the
// content-safety filter, sanitizes uploaded images, invokes the generative
// backend, parses its output into a short/long prompt pair, and persists the
// result. Successful generations are cached for a configurable window so that
// clients can request variations without resubmitting the original input.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// the input kind and prompt identifiers where applicable.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/genai"
	"github.com/tbourn/go-prompt-backend/internal/imaging"
	"github.com/tbourn/go-prompt-backend/internal/promptcache"
	"github.com/tbourn/go-prompt-backend/internal/repo"
	"github.com/tbourn/go-prompt-backend/internal/security"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GenerateInput carries one generation request through the pipeline.
type GenerateInput struct {
	// Kind is one of domain.InputText, domain.InputTextImage, domain.InputImage.
	Kind string
	// Text is the raw user text; may be empty for image-only requests.
	Text string
	// ImageBytes holds the uploaded image, if any.
	ImageBytes []byte
	// ImageMIME is the declared content type of the upload.
	ImageMIME string

	// Request metadata recorded alongside the result.
	UserIP    string
	UserAgent string
}

// PromptService coordinates validation, safety filtering, backend invocation,
// parsing, persistence, and regeneration caching.
type PromptService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Client produces raw backend output for an instruction.
	Client genai.Client
	// Cache retains generation snapshots for the regeneration window.
	Cache promptcache.Store
	// Filter screens input text before it reaches the backend.
	Filter *security.Filter
	// Sanitizer re-encodes uploaded images before backend submission.
	Sanitizer *imaging.Sanitizer

	// TextMaxRunes caps input text by rune length.
	TextMaxRunes int
	// CacheTTL is the regeneration window for successful results.
	CacheTTL time.Duration
	// StrictImages rejects requests whose image cannot be sanitized. When
	// false the original bytes pass through instead.
	StrictImages bool
}

// NewPromptService constructs a PromptService with the given collaborators.
func NewPromptService(db *gorm.DB, client genai.Client, cache promptcache.Store, filter *security.Filter, sanitizer *imaging.Sanitizer) *PromptService {
	return &PromptService{
		DB:           db,
		Client:       client,
		Cache:        cache,
		Filter:       filter,
		Sanitizer:    sanitizer,
		TextMaxRunes: 2000,
		CacheTTL:     time.Hour,
		StrictImages: true,
	}
}

// Generate runs the full pipeline for a new request and returns the persisted
// prompt row. Nothing is persisted or cached when validation, filtering, or
// the backend call fails.
func (s *PromptService) Generate(ctx context.Context, in GenerateInput) (*domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("input.kind", in.Kind),
			attribute.Bool("input.has_image", len(in.ImageBytes) > 0),
		),
	)
	defer span.End()

	outcome := outcomeRejected
	kindLabel := "invalid"
	defer func() { generationsTotal.WithLabelValues(kindLabel, outcome).Inc() }()

	if !domain.ValidInputKind(in.Kind) {
		return nil, ErrInvalidInputKind
	}
	kindLabel = in.Kind

	text := strings.TrimSpace(in.Text)
	if in.Kind == domain.InputText && text == "" {
		return nil, ErrEmptyText
	}
	if s.TextMaxRunes > 0 && utf8.RuneCountInString(text) > s.TextMaxRunes {
		return nil, ErrTextTooLong
	}
	if in.Kind != domain.InputText && len(in.ImageBytes) == 0 {
		return nil, ErrImageRequired
	}

	if text != "" && s.Filter != nil {
		if hit, rule := s.Filter.IsMalicious(text); hit {
			log.Warn().Str("rule", rule).Str("ip", in.UserIP).Msg("input rejected by content filter")
			span.SetAttributes(attribute.String("filter.rule", rule))
			filterHitsTotal.WithLabelValues(rule).Inc()
			return nil, ErrMaliciousContent
		}
	}

	imageJPEG, err := s.prepareImage(in.ImageBytes, in.ImageMIME)
	if err != nil {
		return nil, err
	}

	hasImage := len(imageJPEG) > 0
	instruction := genai.BuildInstruction(text, hasImage, false)

	// The backend call runs to completion even if the client disconnects:
	// the upstream bills the attempt either way, so the deadline comes from
	// the client's own timeout rather than the request context.
	raw, err := s.Client.Generate(context.WithoutCancel(ctx), instruction, imageJPEG)
	if err != nil {
		log.Error().Err(err).Str("kind", in.Kind).Msg("backend generation failed")
		outcome = outcomeUpstream
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	pair := genai.Parse(raw)

	p := &domain.Prompt{
		ID:           uuid.NewString(),
		InputType:    in.Kind,
		InputText:    text,
		ImagePresent: hasImage,
		ShortPrompt:  pair.Short,
		LongPrompt:   pair.Long,
		Status:       domain.StatusSuccess,
		UserIP:       in.UserIP,
		UserAgent:    in.UserAgent,
	}
	if err := repo.CreatePrompt(ctx, s.DB, p); err != nil {
		outcome = outcomeInternal
		return nil, err
	}
	outcome = outcomeSuccess

	if s.Cache != nil {
		s.Cache.Put(p.ID, promptcache.Snapshot{
			InputKind:    in.Kind,
			InputText:    text,
			ImagePresent: hasImage,
			ImageJPEG:    imageJPEG,
		}, s.CacheTTL)
	}

	return p, nil
}

// Regenerate produces a variation for a previously generated prompt using its
// cached snapshot. The stored row is left untouched when the backend call
// fails, so the previous result remains readable.
func (s *PromptService) Regenerate(ctx context.Context, id string) (*domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Regenerate",
		trace.WithAttributes(attribute.String("prompt.id", id)),
	)
	defer span.End()

	outcome := outcomeRejected
	defer func() { regenerationsTotal.WithLabelValues(outcome).Inc() }()

	if s.Cache == nil {
		return nil, ErrNotFoundOrExpired
	}
	snap, ok := s.Cache.Get(id)
	if !ok {
		return nil, ErrNotFoundOrExpired
	}

	instruction := genai.BuildInstruction(snap.InputText, snap.ImagePresent, true)

	raw, err := s.Client.Generate(context.WithoutCancel(ctx), instruction, snap.ImageJPEG)
	if err != nil {
		log.Error().Err(err).Str("prompt_id", id).Msg("backend regeneration failed")
		outcome = outcomeUpstream
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	pair := genai.Parse(raw)

	if err := repo.UpdatePromptResult(ctx, s.DB, id, pair.Short, pair.Long); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFoundOrExpired
		}
		outcome = outcomeInternal
		return nil, err
	}

	outcome = outcomeSuccess
	return repo.GetPrompt(ctx, s.DB, id)
}

// prepareImage sanitizes uploaded bytes according to the configured policy.
// Size and type violations are always rejected; decode or re-encode failures
// fall back to the original bytes under the lenient policy.
func (s *PromptService) prepareImage(data []byte, mime string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if s.Sanitizer == nil {
		return data, nil
	}
	out, err := s.Sanitizer.Sanitize(data, mime)
	if err == nil {
		return out, nil
	}
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return nil, ErrImageTooLarge
	case errors.Is(err, imaging.ErrUnsupportedType):
		return nil, ErrImageUnsupported
	}
	if s.StrictImages {
		return nil, fmt.Errorf("%w: %v", ErrImageProcessing, err)
	}
	log.Warn().Err(err).Msg("image sanitization failed, forwarding original bytes")
	return data, nil
}
