// Package confloader provides configuration loading mechanism.
//
// It uses Koanf for flexible configuration loading from multiple
// sources with priority: Override > Env > File > Default.
package confloader

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "POINTERD_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
	known     map[string]envKey
}

// envKey is a target field as seen from the environment.
type envKey struct {
	key  string
	list bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets dotted-key values applied after every other source,
// typically from command-line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads every source into a fresh key space and unmarshals it over
// target. Fields of target not named by any source keep their values, so
// target should hold the defaults. Load may be called again to reload.
//
// Loading order (later sources override earlier):
//  1. Values already in target
//  2. Configuration file (YAML)
//  3. Environment variables
//  4. Overrides
func (l *Loader) Load(target any) error {
	l.k = koanf.New(".")
	l.known = envKeys(target)

	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := l.LoadMap(l.overrides); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	provider := file.Provider(path)
	if err := l.k.Load(provider, yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnv loads configuration from environment variables.
//
// POINTERD_SERVER_LISTEN_ADDR maps to server.listen_addr when Load has
// seen a target with that key, and values of slice fields are split on
// commas. Unknown variables fall back to replacing every underscore with
// a dot.
func (l *Loader) LoadEnv() error {
	transform := func(name, value string) (string, any) {
		name = strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
		k, ok := l.known[name]
		if !ok {
			return strings.ReplaceAll(name, "_", "."), value
		}
		if k.list {
			return k.key, splitList(value)
		}
		return k.key, value
	}

	provider := env.ProviderWithValue(l.envPrefix, ".", transform)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return nil
}

// LoadMap loads configuration from a map of dotted keys.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetBool returns a bool value from the configuration.
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// envKeys collects the dotted koanf keys of a struct and indexes them by
// their lower-case environment form (dots replaced by underscores).
func envKeys(target any) map[string]envKey {
	keys := make(map[string]envKey)
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return keys
	}
	collectKeys(t, "", keys)
	return keys
}

func collectKeys(t reflect.Type, parent string, keys map[string]envKey) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if parent != "" {
			key = parent + "." + name
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			collectKeys(ft, key, keys)
			continue
		}
		keys[strings.ReplaceAll(key, ".", "_")] = envKey{key: key, list: ft.Kind() == reflect.Slice}
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
