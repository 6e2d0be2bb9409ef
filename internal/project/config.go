package project

import (
	"fmt"
	"log/slog"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/mk12/zendown/pkg/config"
)

// ConfigFile is the name of the file that marks a project root.
const ConfigFile = "zendown.yml"

// Macro kinds accepted in the macros section of the project config.
const (
	MacroKindInline = "inline"
	MacroKindBlock  = "block"
)

// Config represents the project configuration in zendown.yml.
type Config struct {
	ProjectName     string              `yaml:"project_name"`
	InlineCodeMacro string              `yaml:"inline_code_macro"`
	SmartTypography bool                `yaml:"smart_typography"`
	ImageLinks      bool                `yaml:"image_links"`
	LogLevel        slog.Level          `yaml:"log_level"`
	Macros          map[string]MacroDef `yaml:"macros"`
	Serve           ServeConfig         `yaml:"serve"`
	Index           IndexConfig         `yaml:"index"`
}

// NewDefaultConfig returns a config with every optional field defaulted.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		Serve:    ServeConfig{Port: 8000},
		Index:    IndexConfig{Path: ".zendown/index.db"},
	}
}

// LoadConfig reads and validates zendown.yml at path.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := config.LoadStrict(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ProjectName, validation.Required),
	); err != nil {
		return err
	}
	for _, name := range sortedKeys(c.Macros) {
		def := c.Macros[name]
		if err := def.Validate(); err != nil {
			return fmt.Errorf("macro %q: %w", name, err)
		}
	}
	if err := c.Serve.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// MacroDef declares a project-local macro rendered from a Go template.
type MacroDef struct {
	Kind     string `yaml:"kind"`
	Template string `yaml:"template"`
}

// Validate validates the macro definition.
func (d MacroDef) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Kind, validation.Required, validation.In(MacroKindInline, MacroKindBlock)),
		validation.Field(&d.Template, validation.Required),
	)
}

// ServeConfig holds preview server configuration.
type ServeConfig struct {
	Port int `yaml:"port"`
	// Token, when set, is required as a bearer token on /api routes.
	Token string `yaml:"token"`
}

// Address returns the preview server address.
func (c *ServeConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the serve configuration.
func (c *ServeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// IndexConfig holds the link index location, relative to the project root.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DefaultTitle is used when an article header has no title.
const DefaultTitle = "Untitled Article"

// ArticleConfig is the YAML header of an article.
type ArticleConfig struct {
	Title    string   `yaml:"title"`
	Slug     string   `yaml:"slug"`
	Subtitle string   `yaml:"subtitle"`
	Tags     []string `yaml:"tags"`
	Order    int      `yaml:"order"`
}

var articleKeys = map[string]struct{}{
	"title": {}, "slug": {}, "subtitle": {}, "tags": {}, "order": {},
}

// Validate validates the article header.
func (c *ArticleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.Order, validation.Min(0)),
	)
}

// parseArticleConfig decodes an article header. Problems are logged and
// replaced with defaults; they never fail the load.
func parseArticleConfig(header []byte, slug string, logger *slog.Logger) *ArticleConfig {
	cfg := &ArticleConfig{}
	var node yaml.Node
	if err := config.Decode(header, &node, false); err != nil {
		logger.Error("invalid article header", slog.Any("error", err))
	} else if node.Kind != 0 {
		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			logger.Error("article header is not a mapping", slog.Any("error", err))
		} else {
			for _, key := range sortedKeys(raw) {
				if _, ok := articleKeys[key]; !ok {
					logger.Error("unknown article header key", slog.String("key", key))
				}
			}
			if err := node.Decode(cfg); err != nil {
				logger.Error("invalid article header", slog.Any("error", err))
				cfg = &ArticleConfig{}
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("article header failed validation", slog.Any("error", err))
		if cfg.Title == "" {
			cfg.Title = DefaultTitle
		}
		if cfg.Order < 0 {
			cfg.Order = 0
		}
	}
	if cfg.Slug == "" {
		cfg.Slug = slug
	}
	return cfg
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
