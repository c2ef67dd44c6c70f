package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bodgit/img2xlsx/palette"
	"github.com/bodgit/img2xlsx/workbook"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validatePalette(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateInput() error {
	if strings.TrimSpace(c.Input.FramesDir) == "" {
		return errors.New("input.frames_dir must be set")
	}
	if err := c.Naming().Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.TrimSpace(c.Output.Path) == "" {
		return errors.New("output.path must be set")
	}
	if !strings.EqualFold(filepath.Ext(c.Output.Path), ".xlsx") {
		return fmt.Errorf("output.path %q must end in .xlsx", c.Output.Path)
	}
	if c.Output.ColWidth <= 0 || c.Output.ColWidth > workbook.MaxColWidth {
		return fmt.Errorf("output.col_width must be greater than 0 and at most %d", workbook.MaxColWidth)
	}
	if !c.Output.NoZoom && (c.Output.Zoom < 0 || c.Output.Zoom > 100) {
		return errors.New("output.zoom must be between 0 and 100")
	}
	return nil
}

func (c *Config) validatePalette() error {
	if strings.TrimSpace(c.Palette.Source) == "" {
		return errors.New("palette.source must be set")
	}
	if name, ok := strings.CutPrefix(c.Palette.Source, palette.BuiltinPrefix); ok {
		if _, ok := palette.Builtin(name); !ok {
			return fmt.Errorf("palette.source: unknown built-in palette %q, choose from %s", name, strings.Join(palette.BuiltinNames(), ", "))
		}
	}
	metric, err := palette.ParseMetric(c.Palette.Metric)
	if err != nil {
		return fmt.Errorf("palette.metric: %w", err)
	}
	if c.Palette.Dither && metric != palette.MetricRGB {
		return fmt.Errorf("palette.dither cannot be used with the %s metric", metric)
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.Head < 0 {
		return errors.New("run.head must not be negative")
	}
	if c.Run.Workers < 1 {
		return errors.New("run.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return nil
}
