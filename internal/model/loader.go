package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"YcrudAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadEntitiesFromDir registers one entity per *.yml file; the file name is the type name.
func (r *Registry) LoadEntitiesFromDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := r.LoadEntity(name, data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// LoadEntity validates a YAML descriptor structurally and registers it.
func (r *Registry) LoadEntity(name string, data []byte) error {
	// 1. yaml.Node for key-level validation
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("YAML parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return fmt.Errorf("empty YAML for entity %s", name)
	}
	if err := validateYAMLNode(root.Content[0], "entity"); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	// 2. decode into the descriptor
	var e Entity
	if err := root.Decode(&e); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}
	if strings.TrimSpace(e.Table) == "" {
		return fmt.Errorf("entity %s: table is required", name)
	}

	// 3. register
	if err := r.Register(name, &e); err != nil {
		return err
	}
	logger.Info("entity_loaded", map[string]any{
		"entity":    name,
		"table":     e.Table,
		"relations": len(e.Relations),
	})
	return nil
}
