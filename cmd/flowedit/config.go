package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rendis/flowedit/internal/drag"
	"github.com/rendis/flowedit/internal/editor"
)

// Config holds all flowedit configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath        string  `json:"db_path"`
	LogLevel      string  `json:"log_level"`
	MinNodeWidth  float64 `json:"min_node_width"`
	ZoomMin       float64 `json:"zoom_min"`
	ZoomMax       float64 `json:"zoom_max"`
	DoubleClickMS int     `json:"double_click_ms"`
	ScrollMargin  float64 `json:"scroll_margin"`
	ScrollStep    float64 `json:"scroll_step"`
	ScrollTickMS  int     `json:"scroll_tick_ms"`
	HandleSize    float64 `json:"handle_size"`
	AnchorRadius  float64 `json:"anchor_radius"`
}

func defaultConfig() Config {
	return Config{
		DBPath:        filepath.Join(floweditDir(), "flowedit.db"),
		LogLevel:      "info",
		MinNodeWidth:  100,
		ZoomMin:       0.25,
		ZoomMax:       4,
		DoubleClickMS: 200,
		ScrollMargin:  24,
		ScrollStep:    10,
		ScrollTickMS:  16,
		HandleSize:    8,
		AnchorRadius:  8,
	}
}

func floweditDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowedit"
	}
	return filepath.Join(home, ".flowedit")
}

func settingsPath() string {
	return filepath.Join(floweditDir(), "settings.json")
}

func loadConfig() Config {
	return loadConfigFrom(settingsPath(), os.Getenv)
}

func loadConfigFrom(path string, getenv func(string) string) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := getenv("FLOWEDIT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("FLOWEDIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	envFloat(getenv, "FLOWEDIT_MIN_NODE_WIDTH", &cfg.MinNodeWidth)
	envFloat(getenv, "FLOWEDIT_ZOOM_MIN", &cfg.ZoomMin)
	envFloat(getenv, "FLOWEDIT_ZOOM_MAX", &cfg.ZoomMax)
	envInt(getenv, "FLOWEDIT_DOUBLE_CLICK_MS", &cfg.DoubleClickMS)
	envFloat(getenv, "FLOWEDIT_SCROLL_MARGIN", &cfg.ScrollMargin)
	envFloat(getenv, "FLOWEDIT_SCROLL_STEP", &cfg.ScrollStep)
	envInt(getenv, "FLOWEDIT_SCROLL_TICK_MS", &cfg.ScrollTickMS)
	envFloat(getenv, "FLOWEDIT_HANDLE_SIZE", &cfg.HandleSize)
	envFloat(getenv, "FLOWEDIT_ANCHOR_RADIUS", &cfg.AnchorRadius)

	return cfg
}

func envFloat(getenv func(string) string, key string, dst *float64) {
	if v := getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(getenv func(string) string, key string, dst *int) {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// EditorOptions maps the configuration onto the editor's settings.
func (c Config) EditorOptions() editor.Options {
	return editor.Options{
		MinNodeWidth: c.MinNodeWidth,
		ZoomMin:      c.ZoomMin,
		ZoomMax:      c.ZoomMax,
		DoubleClick:  time.Duration(c.DoubleClickMS) * time.Millisecond,
		ScrollTick:   time.Duration(c.ScrollTickMS) * time.Millisecond,
		Drag: drag.Options{
			HandleSize:   c.HandleSize,
			AnchorRadius: c.AnchorRadius,
			ScrollMargin: c.ScrollMargin,
			ScrollStep:   c.ScrollStep,
		},
	}
}
