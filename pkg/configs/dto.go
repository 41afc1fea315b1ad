package configs

import (
	"encoding/base64"
	"time"

	"github.com/goliatone/go-propform/pkg/store"
)

// TimeFormat is the layout used for CreatedAt and UpdatedAt.
const TimeFormat = "2006-01-02 15:04:05"

// CategoryDTO is a category, optionally with its configurations.
type CategoryDTO struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Configurations []ConfigurationDTO `json:"configurations,omitempty"`
}

// ConfigurationDTO describes a saved configuration. ContentBase64 is only
// filled by Service.Get.
type ConfigurationDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Subcategory   string `json:"subcategory,omitempty"`
	CategoryID    int64  `json:"categoryId"`
	CategoryName  string `json:"categoryName"`
	ContentBase64 string `json:"contentBase64,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// SaveRequest creates a configuration. Either CategoryID or CategoryName must
// be set; a name that does not exist yet creates the category.
type SaveRequest struct {
	Name         string `json:"name" validate:"required"`
	Subcategory  string `json:"subcategory"`
	CategoryID   *int64 `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	CategoryName string `json:"categoryName"`
	JSON         string `json:"json" validate:"required"`
}

// UpdateRequest changes the fields that are not nil.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Subcategory *string `json:"subcategory,omitempty"`
	CategoryID  *int64  `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	JSON        *string `json:"json,omitempty"`
}

// CreateCategoryRequest is the body of a category creation.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

func categoryDTO(c store.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name}
}

func configurationDTO(f store.ConfigurationFile, withContent bool) ConfigurationDTO {
	dto := ConfigurationDTO{
		ID:           f.ID,
		Name:         f.Name,
		Subcategory:  f.Subcategory,
		CategoryID:   f.CategoryID,
		CategoryName: f.CategoryName,
		CreatedAt:    formatTime(f.CreatedAt),
		UpdatedAt:    formatTime(f.UpdatedAt),
	}
	if withContent {
		dto.ContentBase64 = base64.StdEncoding.EncodeToString(f.Content)
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeFormat)
}
