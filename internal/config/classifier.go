package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

// ClassifierConfig holds the candidate label set and the scoring backends.
// When no config file is given the built-in defaults are used.
type ClassifierConfig struct {
	Labels   []string                   `yaml:"labels"`
	Backends []domain.BackendDescriptor `yaml:"backends"`
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Labels: []string{
			"Technical Documentation",
			"Business Proposal",
			"Legal Document",
			"Academic Paper",
			"General Article",
		},
		Backends: []domain.BackendDescriptor{
			{
				Key:         "bart-large-mnli",
				Name:        "BART Large MNLI",
				ModelID:     "facebook/bart-large-mnli",
				MaxTokens:   800,
				Description: "English zero-shot classifier",
			},
			{
				Key:         "mdeberta-v3-base",
				Name:        "mDeBERTa v3 Base",
				ModelID:     "MoritzLaurer/mDeBERTa-v3-base-mnli-xnli",
				MaxTokens:   800,
				Description: "Multilingual zero-shot classifier",
			},
		},
	}
}

// LoadClassifierConfig reads the YAML file at path. An empty path returns
// the defaults; a file that omits labels or backends inherits the default
// value for the omitted section.
func LoadClassifierConfig(path string) (ClassifierConfig, error) {
	cfg := DefaultClassifierConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ClassifierConfig{}, fmt.Errorf("read classifier config: %w", err)
	}

	var loaded ClassifierConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return ClassifierConfig{}, fmt.Errorf("parse classifier config: %w", err)
	}

	if len(loaded.Labels) > 0 {
		cfg.Labels = loaded.Labels
	}
	if len(loaded.Backends) > 0 {
		cfg.Backends = loaded.Backends
	}

	if err := validateClassifierConfig(cfg); err != nil {
		return ClassifierConfig{}, err
	}
	return cfg, nil
}

func validateClassifierConfig(cfg ClassifierConfig) error {
	seen := make(map[string]struct{}, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if b.Key == "" {
			return fmt.Errorf("classifier config: backend with empty key")
		}
		if b.ModelID == "" {
			return fmt.Errorf("classifier config: backend %q has no model id", b.Key)
		}
		if _, dup := seen[b.Key]; dup {
			return fmt.Errorf("classifier config: duplicate backend key %q", b.Key)
		}
		seen[b.Key] = struct{}{}
	}
	for _, label := range cfg.Labels {
		if label == "" {
			return fmt.Errorf("classifier config: empty label")
		}
	}
	return nil
}
