/*
Package config reads the TOML file that supplies defaults for a conversion.

Every setting has a default, so a missing file or section is not an error,
but unknown keys are rejected to catch typos. Command line flags override
whatever the file sets.
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bodgit/img2xlsx/frame"
	"github.com/bodgit/img2xlsx/palette"
	"github.com/bodgit/img2xlsx/workbook"
	"github.com/pelletier/go-toml/v2"
)

// Input describes where the frames are found.
type Input struct {
	FramesDir string `toml:"frames_dir"`
	Digits    int    `toml:"digits"`
	Ext       string `toml:"ext"`
}

// Output describes the workbook to write.
type Output struct {
	Path     string  `toml:"path"`
	ColWidth float64 `toml:"col_width"`
	Zoom     float64 `toml:"zoom"`
	NoZoom   bool    `toml:"no_zoom"`
}

// Palette selects the colors and how they are matched.
type Palette struct {
	Source string `toml:"source"`
	Metric string `toml:"metric"`
	Dither bool   `toml:"dither"`
}

// Run controls how much work is done and how.
type Run struct {
	Head    int    `toml:"head"`
	Workers int    `toml:"workers"`
	Cache   string `toml:"cache"`
}

// Logging controls the log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the complete configuration.
type Config struct {
	Input   Input   `toml:"input"`
	Output  Output  `toml:"output"`
	Palette Palette `toml:"palette"`
	Run     Run     `toml:"run"`
	Logging Logging `toml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Input: Input{
			FramesDir: "frames",
			Digits:    frame.DefaultNaming.Digits,
			Ext:       frame.DefaultNaming.Ext,
		},
		Output: Output{
			Path:     "out.xlsx",
			ColWidth: workbook.DefaultColWidth,
			Zoom:     workbook.DefaultZoom,
		},
		Palette: Palette{
			Source: palette.Default,
			Metric: string(palette.MetricRGB),
		},
		Run: Run{
			Workers: 1,
		},
		Logging: Logging{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a TOML document from r over the defaults and validates the
// result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()

	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return nil, fmt.Errorf("parse config: %s", strings.TrimSpace(sme.String()))
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Encode writes c as a TOML document.
func (c *Config) Encode(w io.Writer) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// CreateSample writes the default configuration to path, which must not
// already exist.
func CreateSample(path string) error {
	cfg := Default()

	b := new(bytes.Buffer)
	if err := cfg.Encode(b); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(b.Bytes()); err != nil {
		return err
	}

	return f.Close()
}

func (c *Config) normalize() {
	c.Palette.Metric = strings.ToLower(strings.TrimSpace(c.Palette.Metric))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Naming returns the frame naming convention.
func (c *Config) Naming() frame.Naming {
	return frame.Naming{
		Digits: c.Input.Digits,
		Ext:    c.Input.Ext,
	}
}

// ZoomScale returns the sheet zoom, or nil when zoom is disabled.
func (c *Config) ZoomScale() *float64 {
	if c.Output.NoZoom {
		return nil
	}
	z := c.Output.Zoom
	return &z
}
