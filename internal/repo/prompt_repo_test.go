package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

func newPromptRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("prompt_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&domain.Prompt{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func samplePrompt(id string) *domain.Prompt {
	return &domain.Prompt{
		ID:           id,
		InputType:    domain.InputText,
		InputText:    "a cat in the rain",
		ShortPrompt:  "short take",
		LongPrompt:   "long take",
		Status:       domain.StatusSuccess,
		UserIP:       "203.0.113.7",
		UserAgent:    "test-agent",
		ImagePresent: false,
	}
}

func TestCreatePrompt_AndGet(t *testing.T) {
	db := newPromptRepoDB(t)
	ctx := context.Background()

	p := samplePrompt("p1")
	if err := CreatePrompt(ctx, db, p); err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}

	got, err := GetPrompt(ctx, db, "p1")
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if got.InputText != p.InputText || got.ShortPrompt != p.ShortPrompt ||
		got.LongPrompt != p.LongPrompt || got.Status != domain.StatusSuccess {
		t.Fatalf("got %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps must be populated")
	}
}

func TestCreatePrompt_RequiresID(t *testing.T) {
	db := newPromptRepoDB(t)
	if err := CreatePrompt(context.Background(), db, &domain.Prompt{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if err := CreatePrompt(context.Background(), db, nil); err == nil {
		t.Fatalf("expected error for nil prompt")
	}
}

func TestGetPrompt_NotFound(t *testing.T) {
	db := newPromptRepoDB(t)
	if _, err := GetPrompt(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := GetPrompt(context.Background(), db, "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank id: err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePromptResult_OverwritesInPlace(t *testing.T) {
	db := newPromptRepoDB(t)
	ctx := context.Background()

	if err := CreatePrompt(ctx, db, samplePrompt("p1")); err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	before, _ := GetPrompt(ctx, db, "p1")

	if err := UpdatePromptResult(ctx, db, "p1", "new short", "new long"); err != nil {
		t.Fatalf("UpdatePromptResult: %v", err)
	}

	after, err := GetPrompt(ctx, db, "p1")
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if after.ShortPrompt != "new short" || after.LongPrompt != "new long" {
		t.Fatalf("variants not overwritten: %+v", after)
	}
	if after.InputText != before.InputText {
		t.Fatalf("input text must be untouched")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("CreatedAt must not change on update")
	}
	if !after.UpdatedAt.After(before.UpdatedAt) && !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards")
	}
}

func TestUpdatePromptResult_NotFound(t *testing.T) {
	db := newPromptRepoDB(t)
	if err := UpdatePromptResult(context.Background(), db, "missing", "s", "l"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := UpdatePromptResult(context.Background(), db, "", "s", "l"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank id: err = %v, want ErrNotFound", err)
	}
}

func TestPromptStats(t *testing.T) {
	db := newPromptRepoDB(t)
	ctx := context.Background()

	// Empty store
	count, last, err := PromptStats(ctx, db)
	if err != nil {
		t.Fatalf("PromptStats: %v", err)
	}
	if count != 0 || last != nil {
		t.Fatalf("empty store: count=%d last=%v", count, last)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := CreatePrompt(ctx, db, samplePrompt(id)); err != nil {
			t.Fatalf("CreatePrompt(%s): %v", id, err)
		}
	}

	count, last, err = PromptStats(ctx, db)
	if err != nil {
		t.Fatalf("PromptStats: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if last == nil || last.IsZero() {
		t.Fatalf("last = %v, want non-zero timestamp", last)
	}
}

func TestOpenSQLite_AndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if !db.Migrator().HasTable(&domain.Prompt{}) {
		t.Fatalf("prompts table missing after migration")
	}
}
