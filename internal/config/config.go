package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	cerr "github.com/saeidalz13/battleship-link/internal/error"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

const (
	StageProd = "prod"
	StageDev  = "dev"

	LinkModeListen = "listen"
	LinkModeDial   = "dial"

	InterfaceConsole = "console"
	InterfaceTermbox = "termbox"

	EnvConfigPath = "LINK_CONFIG"
)

type Config struct {
	Stage       string `toml:"stage"`
	Role        string `toml:"role"`
	LinkMode    string `toml:"link_mode"`
	LinkAddr    string `toml:"link_addr"`
	PeerURL     string `toml:"peer_url"`
	MetricsAddr string `toml:"metrics_addr"`
	DatabaseURL string `toml:"database_url"`
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`
	Interface   string `toml:"interface"`
	Autoplay    bool   `toml:"autoplay"`

	TickRate             int `toml:"tick_rate"`
	MaxAttempts          int `toml:"max_attempts"`
	ResponseTimeoutTicks int `toml:"response_timeout_ticks"`
	FeedbackTicks        int `toml:"feedback_ticks"`
	TerminalTicks        int `toml:"terminal_ticks"`
}

// Default mirrors the board firmware: a 500 Hz loop and messages shown
// for 500 ticks.
func Default() Config {
	return Config{
		Stage:         StageDev,
		Role:          mb.RoleHost,
		LinkMode:      LinkModeListen,
		LinkAddr:      ":9191",
		LogLevel:      "info",
		Interface:     InterfaceConsole,
		TickRate:      500,
		FeedbackTicks: 500,
		TerminalTicks: 500,
	}
}

// Load builds the config from defaults, then the optional TOML file named
// by LINK_CONFIG, then the environment. Outside prod a .env file is read
// first when present.
func Load() (Config, error) {
	if os.Getenv("STAGE") != StageProd {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config .env load failed: %w", err)
		}
	}

	cfg := Default()
	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"STAGE":        &cfg.Stage,
		"ROLE":         &cfg.Role,
		"LINK_MODE":    &cfg.LinkMode,
		"LINK_ADDR":    &cfg.LinkAddr,
		"PEER_URL":     &cfg.PeerURL,
		"METRICS_ADDR": &cfg.MetricsAddr,
		"DATABASE_URL": &cfg.DatabaseURL,
		"LOG_LEVEL":    &cfg.LogLevel,
		"LOG_FILE":     &cfg.LogFile,
		"INTERFACE":    &cfg.Interface,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"TICK_RATE":              &cfg.TickRate,
		"MAX_ATTEMPTS":           &cfg.MaxAttempts,
		"RESPONSE_TIMEOUT_TICKS": &cfg.ResponseTimeoutTicks,
		"FEEDBACK_TICKS":         &cfg.FeedbackTicks,
		"TERMINAL_TICKS":         &cfg.TerminalTicks,
	}
	for key, dst := range ints {
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("config %s must be an integer: %w", key, err)
		}
		*dst = v
	}

	if raw, ok := os.LookupEnv("AUTOPLAY"); ok {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("config AUTOPLAY must be a boolean: %w", err)
		}
		cfg.Autoplay = v
	}
	return nil
}

func Validate(cfg Config) error {
	if cfg.Stage != StageProd && cfg.Stage != StageDev {
		return cerr.ErrInvalidStage(cfg.Stage)
	}
	if !mb.IsRoleValid(cfg.Role) {
		return cerr.ErrInvalidRole(cfg.Role)
	}

	switch cfg.LinkMode {
	case LinkModeListen:
		if cfg.LinkAddr == "" {
			return fmt.Errorf("config missing link_addr for listen mode")
		}
	case LinkModeDial:
		if cfg.PeerURL == "" {
			return fmt.Errorf("config missing peer_url for dial mode")
		}
	default:
		return cerr.ErrInvalidLinkMode(cfg.LinkMode)
	}

	if cfg.Interface != InterfaceConsole && cfg.Interface != InterfaceTermbox {
		return fmt.Errorf("config interface must be %s or %s: %s", InterfaceConsole, InterfaceTermbox, cfg.Interface)
	}
	if cfg.TickRate <= 0 {
		return fmt.Errorf("config tick_rate must be positive: %d", cfg.TickRate)
	}
	if cfg.MaxAttempts < 0 || cfg.ResponseTimeoutTicks < 0 {
		return fmt.Errorf("config retry bounds must not be negative")
	}
	if cfg.FeedbackTicks < 0 || cfg.TerminalTicks < 0 {
		return fmt.Errorf("config display durations must not be negative")
	}
	// a peer showing a hit or miss does not read the link; a resend inside
	// that window comes back as a stale answer
	if cfg.ResponseTimeoutTicks > 0 && cfg.ResponseTimeoutTicks <= cfg.FeedbackTicks {
		return fmt.Errorf("config response_timeout_ticks must exceed feedback_ticks (%d): %d", cfg.FeedbackTicks, cfg.ResponseTimeoutTicks)
	}
	return nil
}
