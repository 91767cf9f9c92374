// Command showroom-edit opens the terminal edit form for one product.
//
//	showroom-edit -product p1 -as u1
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/shell/store"
	"github.com/artpar/showroom/internal/shell/workflow"
	"github.com/artpar/showroom/internal/tui/productform"
	"github.com/spf13/viper"
)

const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitDatabaseError = 2
	ExitUIError       = 3
	ExitNotSaved      = 4
)

// Config is the subset of the server configuration the editor reads.
type Config struct {
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	productID := flag.String("product", "", "ID of the product to edit")
	actor := flag.String("as", "", "User ID to edit as (defaults to $SHOWROOM_USER)")
	flag.Parse()

	if *productID == "" {
		fmt.Fprintln(os.Stderr, "-product is required")
		return ExitConfigError
	}
	if *actor == "" {
		*actor = os.Getenv("SHOWROOM_USER")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	defer closeLog()

	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		return ExitDatabaseError
	}
	defer s.Close()

	// An empty -as edits anonymously, which always ends in "cannot access".
	identity := auth.Anonymous()
	if *actor != "" {
		identity = auth.ForUser(*actor)
	}

	var landed string
	wf := workflow.New(workflow.Config{
		Store:     store.NewProducts(s),
		Identity:  workflow.StaticIdentity(identity),
		Navigator: workflow.NavigatorFunc(func(path string) { landed = path }),
		Logger:    logger,
	})
	defer wf.Close()

	saved, err := productform.Run(productform.Config{Workflow: wf, ProductID: *productID})
	if err != nil {
		fmt.Fprintf(os.Stderr, "editor error: %v\n", err)
		return ExitUIError
	}
	if !saved {
		return ExitNotSaved
	}

	fmt.Printf("product %s saved, returning to %s\n", *productID, landed)
	return ExitSuccess
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("database.dsn", "data/showroom.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SHOWROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setupLogger logs to log.file when set. The form owns the terminal, so
// nothing is written to stdout or stderr otherwise.
func setupLogger(cfg *Config) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.Log.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}
