// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Prompt model:
// saving accepted generation results, overwriting them on regeneration, and
// fetching single rows.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// ErrNotFound indicates that no row exists for the requested id.
var ErrNotFound = errors.New("not found")

// CreatePrompt inserts a new prompt row. The caller supplies the id so the
// same UUID can key the persisted row and the regeneration cache entry.
func CreatePrompt(ctx context.Context, db *gorm.DB, p *domain.Prompt) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("prompt id required")
	}
	return db.WithContext(ctx).Create(p).Error
}

// UpdatePromptResult overwrites the generated variants of an existing row in
// place. CreatedAt is left untouched; UpdatedAt moves to now. Returns
// ErrNotFound when the id does not exist.
func UpdatePromptResult(ctx context.Context, db *gorm.DB, id, shortPrompt, longPrompt string) error {
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	res := db.WithContext(ctx).Model(&domain.Prompt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"short_prompt": shortPrompt,
			"long_prompt":  longPrompt,
			"status":       domain.StatusSuccess,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPrompt fetches a prompt row by id or returns ErrNotFound.
func GetPrompt(ctx context.Context, db *gorm.DB, id string) (*domain.Prompt, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var p domain.Prompt
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
