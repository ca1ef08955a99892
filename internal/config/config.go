package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/alnah/go-doctranslate/internal/lang"
	"github.com/alnah/go-doctranslate/internal/logger"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// Sentinel errors.
var (
	// ErrInvalidKey indicates a key that is not part of the configuration surface.
	ErrInvalidKey = errors.New("invalid config key")

	// ErrInvalidValue indicates a value that cannot be parsed for its key.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrNotDirectory indicates the output-dir path exists but is a file.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrNotWritable indicates the output-dir cannot be written to.
	ErrNotWritable = errors.New("directory is not writable")
)

// Config keys.
const (
	KeyCharBudget          = "char-budget"
	KeyTokenBudget         = "token-budget"
	KeyTransformModel      = "transform-model"
	KeyReviewModel         = "review-model"
	KeyPerplexityThreshold = "perplexity-threshold"
	KeyMode                = "mode"
	KeyTargetLang          = "target-lang"
	KeyParallel            = "parallel"
	KeyCache               = "cache"
	KeyRedisURL            = "redis-url"
	KeyOutputDir           = "output-dir"
	KeyLogLevel            = "log-level"
)

// EnvPrefix prefixes every environment fallback (char-budget -> DOCTRANSLATE_CHAR_BUDGET).
const EnvPrefix = "DOCTRANSLATE_"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// defaults holds the value used when neither the file nor the environment sets a key.
var defaults = map[string]string{
	KeyCharBudget:          "10000",
	KeyTokenBudget:         "5000",
	KeyTransformModel:      "gpt-4o-mini",
	KeyReviewModel:         "gpt-4o-mini",
	KeyPerplexityThreshold: "1500",
	KeyMode:                transform.Translate,
	KeyTargetLang:          "en",
	KeyParallel:            "1",
	KeyCache:               CacheMemory,
	KeyRedisURL:            "",
	KeyOutputDir:           "",
	KeyLogLevel:            string(logger.InfoLevel),
}

// Config holds user configuration resolved from ~/.config/doctranslate/config,
// DOCTRANSLATE_* environment variables and built-in defaults.
type Config struct {
	CharBudget          int
	TokenBudget         int
	TransformModel      string
	ReviewModel         string
	PerplexityThreshold float64
	Mode                string
	TargetLang          string
	Parallel            int
	Cache               string
	RedisURL            string
	OutputDir           string
	LogLevel            string
}

// Keys returns every supported key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Default returns the built-in default for key, or "" for unknown keys.
func Default(key string) string {
	return defaults[key]
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	return EnvPrefix + fileKey(key)
}

// fileKey converts a config key to the identifier stored in the dotenv file.
// godotenv only accepts [A-Za-z0-9_.] in names.
func fileKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// configKey is the inverse of fileKey.
func configKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/doctranslate.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "doctranslate"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "doctranslate"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load resolves every key.
// Precedence: config file values, then environment variable fallbacks, then defaults.
// A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	data, err := List()
	if err != nil {
		return cfg, err
	}

	resolved := make(map[string]string, len(defaults))
	for key, def := range defaults {
		switch {
		case data[key] != "":
			resolved[key] = data[key]
		case os.Getenv(EnvName(key)) != "":
			resolved[key] = os.Getenv(EnvName(key))
		default:
			resolved[key] = def
		}
	}

	if cfg.CharBudget, err = positiveInt(KeyCharBudget, resolved[KeyCharBudget]); err != nil {
		return cfg, err
	}
	if cfg.TokenBudget, err = positiveInt(KeyTokenBudget, resolved[KeyTokenBudget]); err != nil {
		return cfg, err
	}
	if cfg.Parallel, err = positiveInt(KeyParallel, resolved[KeyParallel]); err != nil {
		return cfg, err
	}
	if cfg.PerplexityThreshold, err = positiveFloat(KeyPerplexityThreshold, resolved[KeyPerplexityThreshold]); err != nil {
		return cfg, err
	}

	cfg.TransformModel = resolved[KeyTransformModel]
	cfg.ReviewModel = resolved[KeyReviewModel]
	cfg.Mode = resolved[KeyMode]
	cfg.TargetLang = resolved[KeyTargetLang]
	cfg.Cache = resolved[KeyCache]
	cfg.RedisURL = resolved[KeyRedisURL]
	cfg.OutputDir = resolved[KeyOutputDir]
	cfg.LogLevel = resolved[KeyLogLevel]

	return cfg, nil
}

// Validate reports whether value is acceptable for key.
// An empty value is accepted for free-form keys and clears them.
func Validate(key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("%w: %q (valid: %s)", ErrInvalidKey, key, strings.Join(Keys(), ", "))
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: %s must be a single line", ErrInvalidValue, key)
	}

	var err error
	switch key {
	case KeyCharBudget, KeyTokenBudget, KeyParallel:
		_, err = positiveInt(key, value)
	case KeyPerplexityThreshold:
		_, err = positiveFloat(key, value)
	case KeyMode:
		if _, perr := transform.ParseMode(value); perr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, perr)
		}
	case KeyTargetLang:
		if _, perr := lang.Parse(value); perr != nil || value == "" {
			err = fmt.Errorf("%w: %s: %q is not a language code", ErrInvalidValue, key, value)
		}
	case KeyCache:
		switch value {
		case CacheMemory, CacheRedis, CacheNone:
		default:
			err = fmt.Errorf("%w: %s must be one of %s, %s, %s", ErrInvalidValue, key, CacheMemory, CacheRedis, CacheNone)
		}
	case KeyLogLevel:
		if _, perr := logger.ParseLevel(value); perr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, perr)
		}
	}
	return err
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidValue, key, value)
	}
	return n, nil
}

func positiveFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrInvalidValue, key, value)
	}
	return f, nil
}

// parseFile reads a dotenv-format config file and returns it keyed by config key.
func parseFile(p string) (map[string]string, error) {
	if _, err := os.Stat(p); err != nil {
		return nil, err
	}

	raw, err := godotenv.Read(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data := make(map[string]string, len(raw))
	for name, value := range raw {
		data[configKey(name)] = value
	}
	return data, nil
}

// Save validates and writes a single key to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing entries but discards comments.
func Save(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}

	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if existing == nil {
		existing = make(map[string]string)
	}

	if value == "" {
		delete(existing, key)
	} else {
		existing[key] = value
	}

	return writeFile(p, existing)
}

// writeFile writes the config map to a file in dotenv format.
func writeFile(p string, data map[string]string) error {
	out := make(map[string]string, len(data))
	for key, value := range data {
		out[fileKey(key)] = value
	}
	if err := godotenv.Write(out, p); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all values stored in the config file.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// All paths are cleaned using filepath.Clean.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir checks that d can be used as output-dir, creating it if missing.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: output-dir cannot be empty", ErrInvalidValue)
	}

	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Probe writability with a throwaway file.
	probe := filepath.Join(d, ".doctranslate-write-test")
	f, err := os.Create(probe) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(probe)
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	_ = os.Remove(probe)

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
