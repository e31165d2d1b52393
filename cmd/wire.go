package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/bnema/greetreply/internal/adapters/generator/ollama"
	"github.com/bnema/greetreply/internal/config"
	"github.com/bnema/greetreply/internal/ports"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	loader *config.Loader
	cfg    config.Config
	logger *zap.Logger
	clock  ports.Clock
}

func (a *app) init(opts rootOptions, skipConfig bool) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	logger, err := newLogger(opts.verbose, opts.logFile)
	if err != nil {
		return err
	}
	a.logger = logger
	a.clock = ports.SystemClock{}

	loader, err := config.NewLoader(viper.New(), opts.configPath)
	if err != nil {
		return fmt.Errorf("wire config loader: %w", err)
	}
	a.loader = loader

	if skipConfig {
		a.cfg = config.Default()
		return nil
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("config loaded", zap.String("path", loader.Path()), zap.Bool("file", loader.Exists()))

	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) generator() (*ollama.Client, error) {
	client, err := ollama.NewClient(a.cfg.Generation.Host, a.cfg.Generation.Timeout)
	if err != nil {
		return nil, fmt.Errorf("wire generation client: %w", err)
	}

	return client, nil
}

func newLogger(verbose bool, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	return logger, nil
}
