package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/notice"
	pkgconfig "github.com/starford/frontedit/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app" json:"app" toml:"app"`
	Project ProjectConfig     `yaml:"project" json:"project" toml:"project"`
	SQLite  SQLiteConfig      `yaml:"sqlite" json:"sqlite" toml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth" json:"auth" toml:"auth"`
	Editor  EditorConfig      `yaml:"editor" json:"editor" toml:"editor"`
	Schemas []SchemaConfig    `yaml:"schemas" json:"schemas" toml:"schemas"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	for i := range c.Schemas {
		if err := c.Schemas[i].Validate(); err != nil {
			return fmt.Errorf("schemas[%d]: %w", i, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" json:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" json:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ProjectConfig locates the edited project. ContentDir holds Markdown files
// and DataDir JSON files, both relative to Root. An empty directory covers
// the whole project.
type ProjectConfig struct {
	Root       string `yaml:"root" json:"root" toml:"root"`
	ContentDir string `yaml:"content_dir" json:"content_dir" toml:"content_dir"`
	DataDir    string `yaml:"data_dir" json:"data_dir" toml:"data_dir"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.ContentDir, validation.By(relativeDir)),
		validation.Field(&c.DataDir, validation.By(relativeDir)),
	)
}

// Scope returns the directories to index.
func (c *ProjectConfig) Scope() index.Scope {
	return index.Scope{c.ContentDir, c.DataDir}
}

func relativeDir(v any) error {
	dir, _ := v.(string)
	if dir == "" {
		return nil
	}
	if filepath.IsAbs(dir) {
		return fmt.Errorf("must be relative to the project root")
	}
	if rel := filepath.ToSlash(filepath.Clean(dir)); rel == ".." || strings.HasPrefix(rel, "../") {
		return fmt.Errorf("must stay inside the project root")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" json:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" json:"mode" toml:"mode"`
	Token string `yaml:"token" json:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig tunes editing sessions.
type EditorConfig struct {
	NoticeTTL    pkgconfig.Duration `yaml:"notice_ttl" json:"notice_ttl" toml:"notice_ttl"`
	MaxSnapshots int                `yaml:"max_snapshots" json:"max_snapshots" toml:"max_snapshots"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.NoticeTTL, validation.Min(pkgconfig.Duration(0))),
		validation.Field(&c.MaxSnapshots, validation.Min(0)),
	)
}

// SchemaConfig attaches schema files to the content files matching Match.
// Fields is a list of explicit field descriptors, Validation a declarative
// validation schema and JSONSchema a JSON Schema document. Relative paths
// are resolved against the project root.
type SchemaConfig struct {
	Match      string `yaml:"match" json:"match" toml:"match"`
	Fields     string `yaml:"fields" json:"fields" toml:"fields"`
	Validation string `yaml:"validation" json:"validation" toml:"validation"`
	JSONSchema string `yaml:"json_schema" json:"json_schema" toml:"json_schema"`
}

// Validate validates the schema entry.
func (c *SchemaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Match, validation.Required),
		validation.Field(&c.Fields, validation.Required.When(c.Validation == "" && c.JSONSchema == "").
			Error("one of fields, validation or json_schema is required")),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Project: ProjectConfig{
			Root: "./site",
		},
		SQLite: SQLiteConfig{
			Path: "./frontedit.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			NoticeTTL: pkgconfig.Duration(notice.DefaultTTL),
		},
	}
}

// noticeTTL returns the configured TTL, falling back to the default.
func (c *EditorConfig) noticeTTL() time.Duration {
	if c.NoticeTTL <= 0 {
		return notice.DefaultTTL
	}
	return c.NoticeTTL.Std()
}
