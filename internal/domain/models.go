// Package domain defines the persistence models for generated video prompts.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Input kinds accepted by the generation endpoint.
const (
	InputText      = "text"
	InputTextImage = "text-image"
	InputImage     = "image"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ValidInputKind reports whether kind is one of the accepted input kinds.
func ValidInputKind(kind string) bool {
	switch kind {
	case InputText, InputTextImage, InputImage:
		return true
	}
	return false
}

// Prompt represents one accepted generation request together with its latest
// result. Each row is created when a request is accepted and overwritten in
// place on regeneration; results are not versioned.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), shared with the regeneration
//     cache entry for the same request.
//   - InputType: "text", "text-image", or "image" (enforced by DB constraint).
//   - InputText: the caller's description, empty for image-only requests.
//   - ImagePresent: whether a reference image accompanied the request.
//   - ShortPrompt / LongPrompt: the two generated variants; replaced in place
//     when the prompt is regenerated.
//   - Status: "success" or "error".
//   - UserIP / UserAgent: client metadata captured at acceptance time.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM; UpdatedAt moves on
//     regeneration while CreatedAt stays at acceptance time.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Prompt struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	InputType    string         `json:"input_type"    gorm:"type:varchar(20);not null;index;check:input_type IN ('text','text-image','image')"`
	InputText    string         `json:"input_text"    gorm:"type:text"`
	ImagePresent bool           `json:"image_present" gorm:"not null;default:false"`
	ShortPrompt  string         `json:"short_prompt"  gorm:"type:text;not null"`
	LongPrompt   string         `json:"long_prompt"   gorm:"type:text;not null"`
	Status       string         `json:"status"        gorm:"type:varchar(20);not null;default:'success';check:status IN ('success','error')"`
	UserIP       string         `json:"-"             gorm:"type:varchar(45);index"`
	UserAgent    string         `json:"-"             gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"    gorm:"index"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string { return "prompts" }
