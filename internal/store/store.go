// Package store holds the catalog records.
//
// Two interchangeable implementations exist: an in-process MemoryStore and a
// GormStore backed by PostgreSQL or SQLite. Both assign ids from a monotonic
// sequence that is never rewound, so deleted ids are not handed out again.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BayRex1/bayrex-apk/internal/models"
)

// ErrNotFound is returned when no app has the requested id.
var ErrNotFound = errors.New("app not found")

// ValidationError reports a missing or invalid required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Store is the record store contract shared by every backend.
type Store interface {
	Create(ctx context.Context, app *models.App) error
	Get(ctx context.Context, id uint) (*models.App, error)
	Update(ctx context.Context, id uint, patch Patch) (*models.App, error)
	Delete(ctx context.Context, id uint) (*models.App, error)
	List(ctx context.Context, filter Filter) ([]models.App, error)
	IncrementDownloads(ctx context.Context, id uint) (int64, error)
	Len(ctx context.Context) (int, error)
}

// Patch carries the fields of a partial update. Nil means "keep".
type Patch struct {
	Name            *string
	Description     *string
	Version         *string
	Category        *string
	IsFeatured      *bool
	IconFilename    *string
	APKFilename     *string
	OriginalAPKName *string
	FileSize        *int64
}

// prepareNew trims and defaults a record before insertion.
func prepareNew(app *models.App) error {
	app.Name = strings.TrimSpace(app.Name)
	app.Description = strings.TrimSpace(app.Description)
	app.Version = strings.TrimSpace(app.Version)
	app.Category = strings.TrimSpace(app.Category)

	if app.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if app.Description == "" {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if app.APKFilename == "" {
		return &ValidationError{Field: "apk", Message: "apk file is required"}
	}
	if app.Version == "" {
		app.Version = models.DefaultVersion
	}
	if app.Category == "" {
		app.Category = models.DefaultCategory
	}
	if app.IconFilename != nil && *app.IconFilename == "" {
		app.IconFilename = nil
	}
	if app.Downloads < 0 {
		app.Downloads = 0
	}
	return nil
}

// applyPatch merges p over app. Empty version or category keep the old value,
// matching how the upload form submits untouched inputs.
func applyPatch(app *models.App, p Patch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return &ValidationError{Field: "name", Message: "name must not be empty"}
		}
		app.Name = name
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return &ValidationError{Field: "description", Message: "description must not be empty"}
		}
		app.Description = desc
	}
	if p.Version != nil {
		if v := strings.TrimSpace(*p.Version); v != "" {
			app.Version = v
		}
	}
	if p.Category != nil {
		if c := strings.TrimSpace(*p.Category); c != "" {
			app.Category = c
		}
	}
	if p.IsFeatured != nil {
		app.IsFeatured = *p.IsFeatured
	}
	if p.IconFilename != nil && *p.IconFilename != "" {
		icon := *p.IconFilename
		app.IconFilename = &icon
	}
	if p.APKFilename != nil {
		if *p.APKFilename == "" {
			return &ValidationError{Field: "apk", Message: "apk file must not be empty"}
		}
		app.APKFilename = *p.APKFilename
		if p.OriginalAPKName != nil {
			app.OriginalAPKName = *p.OriginalAPKName
		}
		if p.FileSize != nil {
			app.FileSize = *p.FileSize
		}
	}
	return nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) {
		return err
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
