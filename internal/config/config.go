/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

// EditorConfig tunes the interactive surface and the annotation store.
type EditorConfig struct {
	MinSizePx         float64 `yaml:"min_size_px"`
	HistoryDepth      int     `yaml:"history_depth"`
	LiveBlurRadius    int     `yaml:"live_blur_radius"`
	DefaultFontSizePx float64 `yaml:"default_font_size_px"`
	DefaultFontFamily string  `yaml:"default_font_family"`
	DisplayWidth      int     `yaml:"display_width"`
}

// ExportConfig selects the export preset. Zero multiplier/sigma follow the preset.
type ExportConfig struct {
	Preset               string  `yaml:"preset"`
	ResolutionMultiplier float64 `yaml:"resolution_multiplier"`
	BlurSigma            float64 `yaml:"blur_sigma"`
	DefaultFont          string  `yaml:"default_font"`
	EraseColor           string  `yaml:"erase_color"`
	TextColor            string  `yaml:"text_color"`
}

// RenderConfig is the external PDF rasterizer. Args may use the placeholders
// {input}, {output}, {page} and {width}.
type RenderConfig struct {
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	TimeoutMs int      `yaml:"timeout_ms"`
}

// FontConfig registers a TrueType/OpenType file under a family name.
type FontConfig struct {
	Family string `yaml:"family"`
	Weight int    `yaml:"weight"`
	Italic bool   `yaml:"italic"`
	Path   string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Export        ExportConfig  `yaml:"export"`
	Render        RenderConfig  `yaml:"render"`
	Fonts         []FontConfig  `yaml:"fonts,omitempty"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Editor: EditorConfig{
			MinSizePx: 5, HistoryDepth: 100, LiveBlurRadius: 4,
			DefaultFontSizePx: 16, DefaultFontFamily: "Go", DisplayWidth: 800,
		},
		Export: ExportConfig{Preset: "print", DefaultFont: "Go", EraseColor: "#ffffff", TextColor: "#000000"},
		Render: RenderConfig{
			Command: "pdftoppm",
			Args: []string{"-png", "-f", "{page}", "-l", "{page}", "-scale-to-x", "{width}",
				"-scale-to-y", "-1", "-singlefile", "{input}", "{output}"},
			TimeoutMs: 60000,
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvMinSizePx        = "RDX_MIN_SIZE_PX"
	EnvExportPreset     = "RDX_EXPORT_PRESET"
	EnvExportMultiplier = "RDX_EXPORT_MULTIPLIER"
	EnvRenderCommand    = "RDX_RENDER_COMMAND"
	EnvTelemetryOptIn   = "RDX_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "RDX_LOG_LEVEL"
	EnvLogFormat = "RDX_LOG_FORMAT"
	EnvLogSource = "RDX_LOG_SOURCE"
	EnvLogFile   = "RDX_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Redactor")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Redactor")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "redactor")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "redactor")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file at path (the per-user file when empty), applies
// defaults and merges environment overrides. A missing file is not an error;
// a malformed one is.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Save writes the config YAML to path (the per-user file when empty).
func Save(cfg AppConfig, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports settings no component can work with.
func (c AppConfig) Validate() error {
	var errs []error
	switch strings.ToLower(c.Export.Preset) {
	case "screen", "print", "archive":
	default:
		errs = append(errs, fmt.Errorf("export.preset: unknown preset %q", c.Export.Preset))
	}
	if c.Export.ResolutionMultiplier < 0 {
		errs = append(errs, errors.New("export.resolution_multiplier must not be negative"))
	}
	if c.Editor.MinSizePx < 0 {
		errs = append(errs, errors.New("editor.min_size_px must not be negative"))
	}
	if strings.TrimSpace(c.Render.Command) == "" {
		errs = append(errs, errors.New("render.command is empty"))
	}
	for i, f := range c.Fonts {
		if strings.TrimSpace(f.Family) == "" || strings.TrimSpace(f.Path) == "" {
			errs = append(errs, fmt.Errorf("fonts[%d]: family and path are required", i))
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: %q is not console or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// editor
	if src.Editor.MinSizePx > 0 {
		dst.Editor.MinSizePx = src.Editor.MinSizePx
	}
	if src.Editor.HistoryDepth > 0 {
		dst.Editor.HistoryDepth = src.Editor.HistoryDepth
	}
	if src.Editor.LiveBlurRadius > 0 {
		dst.Editor.LiveBlurRadius = src.Editor.LiveBlurRadius
	}
	if src.Editor.DefaultFontSizePx > 0 {
		dst.Editor.DefaultFontSizePx = src.Editor.DefaultFontSizePx
	}
	if strings.TrimSpace(src.Editor.DefaultFontFamily) != "" {
		dst.Editor.DefaultFontFamily = strings.TrimSpace(src.Editor.DefaultFontFamily)
	}
	if src.Editor.DisplayWidth > 0 {
		dst.Editor.DisplayWidth = src.Editor.DisplayWidth
	}
	// export
	if strings.TrimSpace(src.Export.Preset) != "" {
		dst.Export.Preset = strings.ToLower(strings.TrimSpace(src.Export.Preset))
	}
	if src.Export.ResolutionMultiplier != 0 {
		dst.Export.ResolutionMultiplier = src.Export.ResolutionMultiplier
	}
	if src.Export.BlurSigma != 0 {
		dst.Export.BlurSigma = src.Export.BlurSigma
	}
	if strings.TrimSpace(src.Export.DefaultFont) != "" {
		dst.Export.DefaultFont = strings.TrimSpace(src.Export.DefaultFont)
	}
	if strings.TrimSpace(src.Export.EraseColor) != "" {
		dst.Export.EraseColor = strings.TrimSpace(src.Export.EraseColor)
	}
	if strings.TrimSpace(src.Export.TextColor) != "" {
		dst.Export.TextColor = strings.TrimSpace(src.Export.TextColor)
	}
	// render
	if strings.TrimSpace(src.Render.Command) != "" {
		dst.Render.Command = strings.TrimSpace(src.Render.Command)
	}
	if len(src.Render.Args) > 0 {
		dst.Render.Args = append([]string(nil), src.Render.Args...)
	}
	if src.Render.TimeoutMs > 0 {
		dst.Render.TimeoutMs = src.Render.TimeoutMs
	}
	// fonts replace the list
	if len(src.Fonts) > 0 {
		dst.Fonts = append([]FontConfig(nil), src.Fonts...)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMinSizePx)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.Editor.MinSizePx = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportPreset)); v != "" {
		cfg.Export.Preset = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportMultiplier)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Export.ResolutionMultiplier = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRenderCommand)); v != "" {
		cfg.Render.Command = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

var envKeys = map[string]string{
	"editor.min_size_px":           EnvMinSizePx,
	"export.preset":                EnvExportPreset,
	"export.resolution_multiplier": EnvExportMultiplier,
	"render.command":               EnvRenderCommand,
	"general.telemetry_opt_in":     EnvTelemetryOptIn,
	"logging.level":                EnvLogLevel,
	"logging.format":               EnvLogFormat,
	"logging.source":               EnvLogSource,
	"logging.file":                 EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
