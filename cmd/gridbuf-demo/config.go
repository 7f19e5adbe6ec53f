package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-json-experiment/json"
)

type Config struct {
	Width   int
	Height  int
	Density float64
	Seed    uint64

	Tick     time.Duration
	Frame    time.Duration
	Report   time.Duration
	Duration time.Duration
	Readers  int
}

func defaultConfig() Config {
	return Config{
		Width:    256,
		Height:   256,
		Density:  0.25,
		Seed:     1,
		Tick:     5 * time.Millisecond,
		Frame:    16 * time.Millisecond,
		Report:   time.Second,
		Duration: 5 * time.Second,
		Readers:  2,
	}
}

// fileConfig is the on-disk form of Config. Durations are strings in time.ParseDuration
// syntax. Absent fields keep their defaults.
type fileConfig struct {
	Width    *int     `json:"width"`
	Height   *int     `json:"height"`
	Density  *float64 `json:"density"`
	Seed     *uint64  `json:"seed"`
	Tick     string   `json:"tick"`
	Frame    string   `json:"frame"`
	Report   string   `json:"report"`
	Duration string   `json:"duration"`
	Readers  *int     `json:"readers"`
}

func (fc *fileConfig) apply(cfg *Config) error {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&cfg.Width, fc.Width)
	setInt(&cfg.Height, fc.Height)
	setInt(&cfg.Readers, fc.Readers)
	if fc.Density != nil {
		cfg.Density = *fc.Density
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
	for _, d := range []struct {
		name string
		s    string
		dst  *time.Duration
	}{
		{"tick", fc.Tick, &cfg.Tick},
		{"frame", fc.Frame, &cfg.Frame},
		{"report", fc.Report, &cfg.Report},
		{"duration", fc.Duration, &cfg.Duration},
	} {
		if d.s == "" {
			continue
		}
		v, err := time.ParseDuration(d.s)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// readConfigFile decodes a JSON configuration from r on top of cfg.
func readConfigFile(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc, json.RejectUnknownMembers(true)); err != nil {
		return err
	}
	return fc.apply(cfg)
}

func (cfg *Config) validate() error {
	var errs []error
	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Density < 0 || cfg.Density > 1 {
		errs = append(errs, fmt.Errorf("density %v not in [0, 1]", cfg.Density))
	}
	if cfg.Readers < 0 {
		errs = append(errs, fmt.Errorf("negative number of readers %d", cfg.Readers))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{{"tick", cfg.Tick}, {"frame", cfg.Frame}, {"report", cfg.Report}, {"duration", cfg.Duration}} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, is %s", d.name, d.v))
		}
	}
	return errors.Join(errs...)
}

// loadConfig builds the configuration from defaults, the file named by -config if any, and
// finally any flags that were set explicitly.
func loadConfig(name string, args []string) (Config, error) {
	def := defaultConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		path     = fs.String("config", "", "JSON configuration `file`")
		width    = fs.Int("width", def.Width, "grid width")
		height   = fs.Int("height", def.Height, "grid height")
		density  = fs.Float64("density", def.Density, "initial fraction of alive cells")
		seed     = fs.Uint64("seed", def.Seed, "random seed")
		tick     = fs.Duration("tick", def.Tick, "interval between simulation steps")
		frame    = fs.Duration("frame", def.Frame, "interval between rendered frames")
		report   = fs.Duration("report", def.Report, "interval between status reports")
		duration = fs.Duration("duration", def.Duration, "how long to run for")
		readers  = fs.Int("readers", def.Readers, "number of concurrent renderers")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def
	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			return Config{}, err
		}
		err = readConfigFile(f, &cfg)
		f.Close()
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", *path, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "density":
			cfg.Density = *density
		case "seed":
			cfg.Seed = *seed
		case "tick":
			cfg.Tick = *tick
		case "frame":
			cfg.Frame = *frame
		case "report":
			cfg.Report = *report
		case "duration":
			cfg.Duration = *duration
		case "readers":
			cfg.Readers = *readers
		}
	})
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
