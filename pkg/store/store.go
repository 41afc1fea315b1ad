// Package store defines the persistence contract for saved configurations and
// their categories.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist for the owner.
var ErrNotFound = errors.New("store: not found")

// Category groups saved configurations of one owner.
type Category struct {
	ID    int64
	Name  string
	Owner string
}

// ConfigurationFile is a saved configuration document. CategoryName is filled
// on reads.
type ConfigurationFile struct {
	ID           int64
	Name         string
	Subcategory  string
	Content      []byte
	Owner        string
	CategoryID   int64
	CategoryName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists categories and configurations. Deleting a category deletes
// its configurations.
type Store interface {
	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, owner string, id int64) (Category, error)
	FindCategoryByName(ctx context.Context, owner, name string) (Category, error)
	ListCategories(ctx context.Context, owner string) ([]Category, error)
	DeleteCategory(ctx context.Context, owner string, id int64) error

	CreateConfiguration(ctx context.Context, file *ConfigurationFile) error
	UpdateConfiguration(ctx context.Context, file *ConfigurationFile) error
	GetConfiguration(ctx context.Context, owner string, id int64) (ConfigurationFile, error)
	ListConfigurations(ctx context.Context, owner string) ([]ConfigurationFile, error)
	ListConfigurationsByCategory(ctx context.Context, categoryID int64) ([]ConfigurationFile, error)
	DeleteConfiguration(ctx context.Context, owner string, id int64) error

	Ping(ctx context.Context) error
	Close() error
}
