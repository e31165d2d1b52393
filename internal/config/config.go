package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/greetreply/internal/application"
	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "GREETREPLY"
	configType      = "toml"
	configDir       = ".greetreply"
	configFile      = "config.toml"
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"

	DefaultGenerationHost    = "http://localhost:11434"
	DefaultGenerationTimeout = 5 * time.Minute
)

// Config is everything the CLI reads from disk and environment.
type Config struct {
	Settings   application.Settings
	Generation Generation
}

type Generation struct {
	Host    string
	Timeout time.Duration
}

func Default() Config {
	return Config{
		Settings: application.DefaultSettings(),
		Generation: Generation{
			Host:    DefaultGenerationHost,
			Timeout: DefaultGenerationTimeout,
		},
	}
}

func (c Config) Validate() error {
	errs := []error{c.Settings.Validate()}
	if strings.TrimSpace(c.Generation.Host) == "" {
		errs = append(errs, errors.New("generation host is required"))
	}
	if c.Generation.Timeout < 0 {
		errs = append(errs, errors.New("generation timeout must be >= 0"))
	}

	return errors.Join(errs...)
}

// DefaultPath is ~/.greetreply/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, configDir, configFile), nil
}

// Loader binds one viper instance to one config file path.
type Loader struct {
	v    *viper.Viper
	path string
}

func NewLoader(v *viper.Viper, path string) (*Loader, error) {
	if v == nil {
		v = viper.New()
	}

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	path = filepath.Clean(absPath)

	v.SetConfigFile(path)
	v.SetConfigType(configType)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, toSchema(Default()))

	return &Loader{v: v, path: path}, nil
}

func (l *Loader) Path() string {
	return l.path
}

// Exists reports whether the config file is present on disk.
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Load reads the config file when present, then layers environment overrides.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return l.decode()
}

// Watch calls onChange with the re-decoded config each time the file changes.
func (l *Loader) Watch(onChange func(Config, error)) {
	l.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (Config, error) {
	var file fileSchema
	if err := l.v.Unmarshal(&file); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return Config{}, err
	}
	file.applyDefaults()

	cfg, err := fromSchema(file)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", l.path, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, s fileSchema) {
	v.SetDefault("version", s.Version)
	v.SetDefault("window.class_name", s.Window.ClassName)

	v.SetDefault("timing.reply_interval", s.Timing.ReplyInterval)
	v.SetDefault("timing.min_operation_interval", s.Timing.MinOperationInterval)
	v.SetDefault("timing.check_interval_min", s.Timing.CheckIntervalMin)
	v.SetDefault("timing.check_interval_max", s.Timing.CheckIntervalMax)
	v.SetDefault("timing.backoff_threshold", s.Timing.BackoffThreshold)
	v.SetDefault("timing.backoff_cap", s.Timing.BackoffCap)
	v.SetDefault("timing.cancel_window", s.Timing.CancelWindow)
	v.SetDefault("timing.cancel_poll", s.Timing.CancelPoll)

	v.SetDefault("generation.host", s.Generation.Host)
	v.SetDefault("generation.model", s.Generation.Model)
	v.SetDefault("generation.timeout", s.Generation.Timeout)

	v.SetDefault("classifier.keywords", s.Classifier.Keywords)

	v.SetDefault("reply.gratitude_tokens", s.Reply.GratitudeTokens)
	v.SetDefault("reply.fallback", s.Reply.Fallback)
	v.SetDefault("reply.max_runes", s.Reply.MaxRunes)
	v.SetDefault("reply.persona", s.Reply.Persona)

	v.SetDefault("filters.special_accounts", s.Filters.SpecialAccounts)
	v.SetDefault("filters.skip_groups", s.Filters.SkipGroups)
	v.SetDefault("filters.group_name_indicators", s.Filters.GroupNameIndicators)
	v.SetDefault("filters.group_preview_indicators", s.Filters.GroupPreviewIndicators)

	v.SetDefault("send.cancel_keys", s.Send.CancelKeys)
}

// Encode renders cfg as the TOML document WriteDefault would produce.
func Encode(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(toSchema(cfg))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return data, nil
}

// WriteDefault writes the default config to path atomically. An existing file
// is kept unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat config file: %w", err)
		}
	}

	data, err := Encode(Default())
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}

	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}
