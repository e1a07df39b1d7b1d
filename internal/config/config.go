package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the directory defaults and tuning knobs of every command
type Config struct {
	SourceDir string // raw dumps on the removable drive
	DataDir   string // e.g. "./dataFiles/"
	OutputDir string // e.g. "./output/"
	PlotsDir  string // e.g. "./plots/"
	Catalog   string // sqlite run catalog
	Jobs      int    // file jobs in flight per pass
	Location  *time.Location
}

// FromEnv reads BAROTRACE_* variables, falling back to defaults
func FromEnv() (Config, error) {
	home, _ := os.UserHomeDir()

	cfg := Config{
		SourceDir: env("BAROTRACE_SOURCE_DIR", "/Volumes/Untitled/New folder/TravelDiaryApp/"),
		DataDir:   env("BAROTRACE_DATA_DIR", "./dataFiles/"),
		OutputDir: env("BAROTRACE_OUTPUT_DIR", "./output/"),
		PlotsDir:  env("BAROTRACE_PLOTS_DIR", "./plots/"),
		Catalog:   env("BAROTRACE_CATALOG", filepath.Join(home, ".barotrace", "catalog.db")),
		Jobs:      4,
		Location:  time.Local,
	}

	if s := os.Getenv("BAROTRACE_JOBS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("BAROTRACE_JOBS: want a positive integer, got %q", s)
		}
		cfg.Jobs = n
	}

	if tz := os.Getenv("BAROTRACE_TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("BAROTRACE_TZ: %w", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// Arg returns args[i] when present, otherwise def
func Arg(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
