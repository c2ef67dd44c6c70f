package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bodgit/img2xlsx"
	"github.com/bodgit/img2xlsx/config"
	"github.com/bodgit/img2xlsx/palette"
	"github.com/urfave/cli/v2"
)

const defaultConfig = "img2xlsx.toml"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

// loadConfig reads the configuration named by --config, or img2xlsx.toml in
// the current directory if there is one, and falls back to the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if !c.IsSet("config") {
		if _, err := os.Stat(defaultConfig); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				cfg := config.Default()
				return &cfg, nil
			}
			return nil, err
		}
		path = defaultConfig
	}
	return config.Load(path)
}

func newLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelWarn
	}
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// applyConvertFlags overrides the configuration with any flag set on the
// command line.
func applyConvertFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("frames-dir") {
		cfg.Input.FramesDir = c.String("frames-dir")
	}
	if c.IsSet("digits") {
		cfg.Input.Digits = c.Int("digits")
	}
	if c.IsSet("ext") {
		cfg.Input.Ext = c.String("ext")
	}
	if c.IsSet("output") {
		cfg.Output.Path = c.String("output")
	}
	if c.IsSet("colwidth") {
		cfg.Output.ColWidth = c.Float64("colwidth")
	}
	if c.IsSet("zoomscale") {
		cfg.Output.Zoom = c.Float64("zoomscale")
		cfg.Output.NoZoom = false
	}
	if c.IsSet("no-zoom") {
		cfg.Output.NoZoom = c.Bool("no-zoom")
	}
	if c.IsSet("palette") {
		cfg.Palette.Source = c.String("palette")
	}
	if c.IsSet("metric") {
		cfg.Palette.Metric = c.String("metric")
	}
	if c.IsSet("dither") {
		cfg.Palette.Dither = c.Bool("dither")
	}
	if c.IsSet("head") {
		cfg.Run.Head = c.Int("head")
	}
	if c.IsSet("workers") {
		cfg.Run.Workers = c.Int("workers")
	}
	if c.IsSet("cache") {
		cfg.Run.Cache = c.String("cache")
	}

	if c.IsSet("zoomscale") && c.IsSet("no-zoom") && c.Bool("no-zoom") {
		return errors.New("--zoomscale and --no-zoom are mutually exclusive")
	}

	return cfg.Validate()
}

func convert(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := applyConvertFlags(c, cfg); err != nil {
		return cli.Exit(err, 1)
	}

	logger := newLogger(c, cfg)

	p, err := palette.Load(cfg.Palette.Source)
	if err != nil {
		return cli.Exit(err, 1)
	}

	metric, err := palette.ParseMetric(cfg.Palette.Metric)
	if err != nil {
		return cli.Exit(err, 1)
	}

	var cache *img2xlsx.FrameCache
	if cfg.Run.Cache != "" {
		if cache, err = img2xlsx.NewFrameCache(cfg.Run.Cache); err != nil {
			return cli.Exit(err, 1)
		}
		defer cache.Close()
	}

	job := img2xlsx.Job{
		FramesDir: cfg.Input.FramesDir,
		Output:    cfg.Output.Path,
		Palette:   p,
		Metric:    metric,
		Dither:    cfg.Palette.Dither,
		Head:      cfg.Run.Head,
		ColWidth:  cfg.Output.ColWidth,
		Zoom:      cfg.ZoomScale(),
		Workers:   cfg.Run.Workers,
		Naming:    cfg.Naming(),
	}

	var bar *progress
	if !c.Bool("verbose") && !c.Bool("no-progress") && isTerminal(os.Stderr) {
		bar = newProgress(os.Stderr)
		job.Progress = bar.update
	}

	res, err := img2xlsx.New(logger, cache).Convert(c.Context, job)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintln(c.App.Writer, renderSummary(res, cfg.Palette.Source))

	return nil
}

func loadImage(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return m, nil
}

func showPalette(c *cli.Context) error {
	if c.Bool("list") {
		fmt.Fprintln(c.App.Writer, renderBuiltins())
		return nil
	}

	var (
		p   *palette.Palette
		err error
	)
	if c.IsSet("from") {
		method, err := palette.ParseMethod(c.String("method"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		m, err := loadImage(c.String("from"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		if p, err = palette.Extract(m, c.Int("colors"), method); err != nil {
			return cli.Exit(err, 1)
		}
	} else {
		source := c.String("palette")
		if !c.IsSet("palette") {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err, 1)
			}
			source = cfg.Palette.Source
		}
		if p, err = palette.Load(source); err != nil {
			return cli.Exit(err, 1)
		}
	}

	fmt.Fprintln(c.App.Writer, renderPalette(p))

	if c.IsSet("export") {
		if err := palette.Save(c.String("export"), p); err != nil {
			return cli.Exit(err, 1)
		}
	}

	return nil
}

func initConfig(c *cli.Context) error {
	path := c.String("path")
	if err := config.CreateSample(path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return cli.Exit(fmt.Sprintf("config file already exists at %s", path), 1)
		}
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(c.App.Writer, "Wrote sample configuration to %s\n", path)
	return nil
}

func validateConfig(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, "Configuration is valid")
	return nil
}

func openCache(c *cli.Context) (*img2xlsx.FrameCache, error) {
	file := c.String("cache")
	if !c.IsSet("cache") {
		cfg, err := loadConfig(c)
		if err != nil {
			return nil, err
		}
		file = cfg.Run.Cache
	}
	if file == "" {
		return nil, errors.New("no cache configured, use --cache")
	}
	return img2xlsx.NewFrameCache(file)
}

func cacheStats(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer cache.Close()

	n, err := cache.Len()
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, printer.Sprintf("%d cached frames", n))
	return nil
}

func cachePurge(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer cache.Close()

	if err := cache.Purge(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "img2xlsx"
	app.Usage = "Convert a sequence of image frames into a spreadsheet"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"IMG2XLSX_CONFIG"},
			Value:   defaultConfig,
			Usage:   "path to configuration file",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	cacheFlag := &cli.StringFlag{
		Name:  "cache",
		Usage: "path to frame cache database",
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert frames into a workbook",
			Description: "Every frame becomes one sheet and every pixel one filled cell.",
			Action:      convert,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "frames-dir",
					Usage: "directory holding 0001.jpg, 0002.jpg, ...",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "workbook to write",
				},
				&cli.IntFlag{
					Name:  "head",
					Usage: "only convert the first `N` frames",
				},
				&cli.Float64Flag{
					Name:  "zoomscale",
					Usage: "sheet zoom percentage",
				},
				&cli.BoolFlag{
					Name:  "no-zoom",
					Usage: "leave the sheet zoom unset",
				},
				&cli.Float64Flag{
					Name:  "colwidth",
					Usage: "width of every column",
				},
				&cli.StringFlag{
					Name:  "palette",
					Usage: "palette file or builtin:NAME",
				},
				&cli.StringFlag{
					Name:  "metric",
					Usage: "color distance, rgb or lab",
				},
				&cli.BoolFlag{
					Name:  "dither",
					Usage: "enable Floyd-Steinberg dithering",
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "number of frames to process at once",
				},
				&cli.IntFlag{
					Name:  "digits",
					Usage: "width of the zero-padded frame number",
				},
				&cli.StringFlag{
					Name:  "ext",
					Usage: "frame file extension",
				},
				cacheFlag,
				&cli.BoolFlag{
					Name:  "no-progress",
					Usage: "don't show a progress bar",
				},
			},
		},
		{
			Name:   "palette",
			Usage:  "Show, extract or export a palette",
			Action: showPalette,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "palette",
					Usage: "palette file or builtin:NAME",
				},
				&cli.BoolFlag{
					Name:  "list",
					Usage: "list the built-in palettes",
				},
				&cli.StringFlag{
					Name:  "from",
					Usage: "derive the palette from `IMAGE`",
				},
				&cli.IntFlag{
					Name:  "colors",
					Value: 16,
					Usage: "number of colors to derive",
				},
				&cli.StringFlag{
					Name:  "method",
					Value: string(palette.MethodMedianCut),
					Usage: "median-cut, dominant or kmeans",
				},
				&cli.StringFlag{
					Name:  "export",
					Usage: "save the palette as a GIMP palette `FILE`",
				},
			},
		},
		{
			Name:  "config",
			Usage: "Configuration utilities",
			Subcommands: []*cli.Command{
				{
					Name:   "init",
					Usage:  "Create a sample configuration file",
					Action: initConfig,
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "path",
							Value: defaultConfig,
							Usage: "destination for the configuration file",
						},
					},
				},
				{
					Name:   "validate",
					Usage:  "Check the configuration file",
					Action: validateConfig,
				},
			},
		},
		{
			Name:  "cache",
			Usage: "Frame cache utilities",
			Subcommands: []*cli.Command{
				{
					Name:   "stats",
					Usage:  "Count the cached frames",
					Action: cacheStats,
					Flags:  []cli.Flag{cacheFlag},
				},
				{
					Name:   "purge",
					Usage:  "Remove every cached frame",
					Action: cachePurge,
					Flags:  []cli.Flag{cacheFlag},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
