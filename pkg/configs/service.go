// Package configs implements the save API: named configuration documents
// grouped in per-owner categories.
package configs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/store"
)

// Service applies the save API rules on top of a store.Store.
type Service struct {
	store    store.Store
	validate *validator.Validate
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithValidator replaces the request validator.
func WithValidator(v *validator.Validate) Option {
	return func(s *Service) {
		if v != nil {
			s.validate = v
		}
	}
}

// NewService returns a Service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		validate: validator.New(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ListCategoriesWithConfigurations returns every category of owner with its
// configurations, without content.
func (s *Service) ListCategoriesWithConfigurations(ctx context.Context, owner string) ([]CategoryDTO, error) {
	categories, err := s.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("configs: list categories: %w", err)
	}
	out := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		files, err := s.store.ListConfigurationsByCategory(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("configs: list configurations of %d: %w", category.ID, err)
		}
		dto := categoryDTO(category)
		dto.Configurations = make([]ConfigurationDTO, 0, len(files))
		for _, file := range files {
			dto.Configurations = append(dto.Configurations, configurationDTO(file, false))
		}
		out = append(out, dto)
	}
	return out, nil
}

// ListCategories returns the categories of owner.
func (s *Service) ListCategories(ctx context.Context, owner string) ([]CategoryDTO, error) {
	categories, err := s.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("configs: list categories: %w", err)
	}
	out := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		out = append(out, categoryDTO(category))
	}
	return out, nil
}

// ListConfigurations returns the configurations of owner, without content.
func (s *Service) ListConfigurations(ctx context.Context, owner string) ([]ConfigurationDTO, error) {
	files, err := s.store.ListConfigurations(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("configs: list configurations: %w", err)
	}
	out := make([]ConfigurationDTO, 0, len(files))
	for _, file := range files {
		out = append(out, configurationDTO(file, false))
	}
	return out, nil
}

// Get returns one configuration with its content encoded as base64.
func (s *Service) Get(ctx context.Context, owner string, id int64) (ConfigurationDTO, error) {
	file, err := s.store.GetConfiguration(ctx, owner, id)
	if err != nil {
		return ConfigurationDTO{}, notFound(err, ErrConfigurationNotFound)
	}
	return configurationDTO(file, true), nil
}

// Fetcher returns a schema.StoreFetcher that reads owner's saved
// configurations, so "store:<id>" sources resolve to their JSON content.
func (s *Service) Fetcher(owner string) schema.StoreFetcher {
	return func(ctx context.Context, id string) ([]byte, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: configuration id %q", ErrInvalidRequest, id)
		}
		file, err := s.store.GetConfiguration(ctx, owner, n)
		if err != nil {
			return nil, notFound(err, ErrConfigurationNotFound)
		}
		return file.Content, nil
	}
}

// CreateCategory creates a category named name for owner.
func (s *Service) CreateCategory(ctx context.Context, owner string, req CreateCategoryRequest) (CategoryDTO, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return CategoryDTO{}, err
	}
	category := store.Category{Name: req.Name, Owner: owner}
	if err := s.store.CreateCategory(ctx, &category); err != nil {
		return CategoryDTO{}, fmt.Errorf("configs: create category: %w", err)
	}
	s.logger.Info().Int64("category_id", category.ID).Str("owner", owner).Msg("category created")
	return categoryDTO(category), nil
}

// Save stores a new configuration. CategoryID wins over CategoryName; a name
// not known for owner creates the category.
func (s *Service) Save(ctx context.Context, owner string, req SaveRequest) (ConfigurationDTO, error) {
	if err := s.check(req); err != nil {
		return ConfigurationDTO{}, err
	}
	category, err := s.resolveCategory(ctx, owner, req.CategoryID, req.CategoryName)
	if err != nil {
		return ConfigurationDTO{}, err
	}

	file := store.ConfigurationFile{
		Name:         req.Name,
		Subcategory:  req.Subcategory,
		Content:      []byte(req.JSON),
		Owner:        owner,
		CategoryID:   category.ID,
		CategoryName: category.Name,
	}
	if err := s.store.CreateConfiguration(ctx, &file); err != nil {
		return ConfigurationDTO{}, fmt.Errorf("configs: save: %w", err)
	}
	s.logger.Info().
		Int64("configuration_id", file.ID).
		Int64("category_id", category.ID).
		Str("owner", owner).
		Msg("configuration saved")
	return configurationDTO(file, false), nil
}

// Update applies the non-nil fields of req to the configuration id.
func (s *Service) Update(ctx context.Context, owner string, id int64, req UpdateRequest) (ConfigurationDTO, error) {
	if err := s.check(req); err != nil {
		return ConfigurationDTO{}, err
	}
	file, err := s.store.GetConfiguration(ctx, owner, id)
	if err != nil {
		return ConfigurationDTO{}, notFound(err, ErrConfigurationNotFound)
	}

	if req.Name != nil {
		file.Name = *req.Name
	}
	if req.Subcategory != nil {
		file.Subcategory = *req.Subcategory
	}
	if req.JSON != nil {
		file.Content = []byte(*req.JSON)
	}
	if req.CategoryID != nil {
		category, err := s.store.GetCategory(ctx, owner, *req.CategoryID)
		if err != nil {
			return ConfigurationDTO{}, notFound(err, ErrCategoryNotFound)
		}
		file.CategoryID, file.CategoryName = category.ID, category.Name
	}

	if err := s.store.UpdateConfiguration(ctx, &file); err != nil {
		return ConfigurationDTO{}, notFound(err, ErrConfigurationNotFound)
	}
	return configurationDTO(file, false), nil
}

// Delete removes the configuration id of owner.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.store.DeleteConfiguration(ctx, owner, id); err != nil {
		return notFound(err, ErrConfigurationNotFound)
	}
	s.logger.Info().Int64("configuration_id", id).Str("owner", owner).Msg("configuration deleted")
	return nil
}

// DeleteCategory removes the category id of owner and its configurations.
func (s *Service) DeleteCategory(ctx context.Context, owner string, id int64) error {
	if err := s.store.DeleteCategory(ctx, owner, id); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	s.logger.Info().Int64("category_id", id).Str("owner", owner).Msg("category deleted")
	return nil
}

func (s *Service) resolveCategory(ctx context.Context, owner string, id *int64, name string) (store.Category, error) {
	if id != nil {
		category, err := s.store.GetCategory(ctx, owner, *id)
		if err != nil {
			return store.Category{}, notFound(err, ErrCategoryNotFound)
		}
		return category, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return store.Category{}, ErrCategoryRequired
	}
	category, err := s.store.FindCategoryByName(ctx, owner, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Category{}, fmt.Errorf("configs: find category: %w", err)
	}
	category = store.Category{Name: name, Owner: owner}
	if err := s.store.CreateCategory(ctx, &category); err != nil {
		return store.Category{}, fmt.Errorf("configs: create category: %w", err)
	}
	return category, nil
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("configs: %w", err)
}
