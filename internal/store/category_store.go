// Package store persists findex state: the category taxonomy and keyword
// rules in YAML files, and data points, conflict groups and validation rules
// in a SQLite database.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"findex/internal/logging"
	"findex/internal/models"
)

// CategoryStore manages loading and saving of the category taxonomy and the
// learned vendor-to-category mappings.
type CategoryStore struct {
	CategoriesFile string
	VendorsFile    string
	logger         logging.Logger
}

// NewCategoryStore creates a store for category-related data
func NewCategoryStore(categoriesFile, vendorsFile string, logger logging.Logger) *CategoryStore {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &CategoryStore{
		CategoriesFile: categoriesFile,
		VendorsFile:    vendorsFile,
		logger:         logger,
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *CategoryStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".config", "findex", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// LoadCategories loads the taxonomy from the categories YAML file, falling
// back to the built-in default taxonomy when no file is found.
func (s *CategoryStore) LoadCategories() ([]models.CategoryConfig, error) {
	filename := s.CategoriesFile
	if filename == "" {
		filename = "categories.yaml"
	}

	path, err := s.FindConfigFile(filename)
	if err != nil {
		s.logger.Debug("No categories file found, using built-in taxonomy",
			logging.Field{Key: "file", Value: filename})
		return models.DefaultCategories, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read categories file '%s': %w", path, err)
	}

	var cfg models.CategoriesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse categories file '%s': %w", path, err)
	}

	if len(cfg.Categories) == 0 {
		return models.DefaultCategories, nil
	}
	return cfg.Categories, nil
}

// vendorsConfig is the structure of the vendors YAML file.
type vendorsConfig struct {
	Vendors map[string]string `yaml:"vendors"`
}

// LoadVendorMappings loads learned vendor-name-to-category-path mappings.
// A missing file is not an error; learning starts from an empty map.
func (s *CategoryStore) LoadVendorMappings() (map[string]string, error) {
	filename := s.VendorsFile
	if filename == "" {
		filename = "vendors.yaml"
	}

	path, err := s.FindConfigFile(filename)
	if err != nil {
		return map[string]string{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read vendors file '%s': %w", path, err)
	}

	var cfg vendorsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse vendors file '%s': %w", path, err)
	}
	if cfg.Vendors == nil {
		cfg.Vendors = map[string]string{}
	}
	return cfg.Vendors, nil
}

// SaveVendorMappings writes the vendor mappings back to the vendors file.
func (s *CategoryStore) SaveVendorMappings(mappings map[string]string) error {
	filename := s.VendorsFile
	if filename == "" {
		filename = "vendors.yaml"
	}

	path, err := s.FindConfigFile(filename)
	if err != nil {
		// First save: write next to the working directory.
		path = filename
	}

	data, err := yaml.Marshal(vendorsConfig{Vendors: mappings})
	if err != nil {
		return fmt.Errorf("could not marshal vendor mappings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("could not write vendors file '%s': %w", path, err)
	}

	s.logger.Debug("Saved vendor mappings",
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(mappings)})
	return nil
}
