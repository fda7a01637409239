package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the server settings. Flags give the defaults; environment
// variables (optionally from a .env file) override them.
type Config struct {
	Addr         string
	StaticDir    string
	DBPath       string
	InviteSecret string
	PublicURL    string
	LogLevel     string
}

// LoadConfig parses flags from args and applies environment overrides
func LoadConfig(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("goalrush", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&cfg.StaticDir, "client", "", "Path to client directory (default: ../client)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite path for round history (empty disables it)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "Base URL used in invite links")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// a missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	overrideFromEnv(&cfg.Addr, "ADDR")
	overrideFromEnv(&cfg.StaticDir, "STATIC_DIR")
	overrideFromEnv(&cfg.DBPath, "DB_PATH")
	overrideFromEnv(&cfg.InviteSecret, "INVITE_SECRET")
	overrideFromEnv(&cfg.PublicURL, "PUBLIC_URL")
	overrideFromEnv(&cfg.LogLevel, "LOG_LEVEL")

	if cfg.StaticDir == "" {
		cfg.StaticDir = defaultStaticDir()
	}
	return cfg, nil
}

func overrideFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func defaultStaticDir() string {
	exe, _ := os.Executable()
	dir := filepath.Join(filepath.Dir(exe), "..", "client")
	// Fallback for development
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = "../client"
	}
	// If still doesn't exist, serve no static files
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ""
	}
	return dir
}
