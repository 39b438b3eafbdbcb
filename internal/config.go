package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/writeup/internal/apperr"
	"github.com/starford/writeup/internal/convert"
	"github.com/starford/writeup/internal/models"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Source     SourceConfig      `yaml:"source"`
	Target     TargetConfig      `yaml:"target"`
	Conversion ConversionConfig  `yaml:"conversion"`
}

// Validate validates the configuration. Every failure wraps
// apperr.ErrConfiguration and is reported before any file is touched.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.Conversion.Validate(); err != nil {
		return err
	}
	attachmentsNeeded := !c.Conversion.NoAttachments
	if err := c.Source.Validate(attachmentsNeeded); err != nil {
		return err
	}
	if err := c.Target.Validate(attachmentsNeeded, models.Mode(c.Conversion.Mode)); err != nil {
		return err
	}
	// Outputs written into the source folder would be read back as notes.
	return validation.Errors{
		"target": validation.Validate(c.Target.Path, validation.By(notSameDir(c.Source.Dir()))),
	}.Filter()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Watch keeps converting whenever the sources change.
	Watch bool `yaml:"watch"`
}

// SourceConfig points at the notes and the attachments they embed.
type SourceConfig struct {
	// Path is a single note or a folder of notes (not searched recursively).
	Path        string `yaml:"path"`
	Attachments string `yaml:"attachments"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate(attachmentsNeeded bool) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required, validation.By(exists)),
		validation.Field(&c.Attachments,
			validation.When(attachmentsNeeded, validation.Required, validation.By(isDir))),
	)
}

// Dir returns the folder notes are read from: Path itself, or the folder
// holding Path when it names a single note.
func (c *SourceConfig) Dir() string {
	if info, err := os.Stat(c.Path); err == nil && !info.IsDir() {
		return filepath.Dir(c.Path)
	}
	return c.Path
}

// TargetConfig says where converted notes and attachments are written.
type TargetConfig struct {
	Path        string `yaml:"path"`
	Attachments string `yaml:"attachments"`
	// AssetPrefix is the path or URL that website embeds point to.
	// Defaults to Attachments.
	AssetPrefix string `yaml:"asset_prefix"`
	// CombinedName is the output file name in combined mode.
	CombinedName string `yaml:"combined_name"`
}

// Validate validates the target configuration.
func (c *TargetConfig) Validate(attachmentsNeeded bool, mode models.Mode) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Attachments, validation.When(attachmentsNeeded, validation.Required)),
		validation.Field(&c.CombinedName, validation.When(mode == models.ModeCombined, validation.Required)),
	)
}

// AssetLinkPrefix returns the prefix written into website embeds.
func (c *TargetConfig) AssetLinkPrefix() string {
	if c.AssetPrefix != "" {
		return c.AssetPrefix
	}
	return c.Attachments
}

// ConversionConfig selects the output format and its options.
type ConversionConfig struct {
	Mode string `yaml:"mode"`
	// URLPrefix is prepended to rewritten PDF links.
	URLPrefix     string `yaml:"url_prefix"`
	AddPrefix     string `yaml:"add_prefix"`
	RemovePrefix  string `yaml:"remove_prefix"`
	NoAttachments bool   `yaml:"no_attachments"`
	Contents      bool   `yaml:"contents"`
	// HTML also renders every output to an .html page.
	HTML bool `yaml:"html"`
}

// Validate validates the conversion configuration.
func (c *ConversionConfig) Validate() error {
	modes := make([]any, len(models.Modes))
	for i, m := range models.Modes {
		modes[i] = string(m)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(modes...)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Target: TargetConfig{
			CombinedName: convert.DefaultCombinedName,
		},
		Conversion: ConversionConfig{
			Mode:     string(models.ModeCopy),
			Contents: true,
		},
	}
}

func exists(value any) error {
	path, _ := value.(string)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("%s: %v", path, err)
	}
	return nil
}

// notSameDir rejects a path that resolves to dir.
func notSameDir(dir string) validation.RuleFunc {
	return func(value any) error {
		path, _ := value.(string)
		if path == "" || dir == "" {
			return nil
		}
		a, errA := filepath.Abs(path)
		b, errB := filepath.Abs(dir)
		if errA != nil || errB != nil {
			return nil
		}
		if a == b {
			return fmt.Errorf("%s is the source folder", path)
		}
		return nil
	}
}

func isDir(value any) error {
	path, _ := value.(string)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s does not exist", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
