// ABOUTME: Entry point for the haggle-gateway negotiation server
// ABOUTME: Wires store, generator, registry, relay service, and HTTP gateway

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/marketbot/haggle-gateway/internal/config"
	"github.com/marketbot/haggle-gateway/internal/gateway"
	"github.com/marketbot/haggle-gateway/internal/llm"
	"github.com/marketbot/haggle-gateway/internal/negotiation"
	"github.com/marketbot/haggle-gateway/internal/registry"
	"github.com/marketbot/haggle-gateway/internal/session"
	"github.com/marketbot/haggle-gateway/internal/store"
)

// version is overridden via -ldflags at release build time.
var version = "dev"

const banner = `
  _                      _
 | |__   __ _  __ _  __ _| | ___
 | '_ \ / _' |/ _' |/ _' | |/ _ \
 | | | | (_| | (_| | (_| | |  __/
 |_| |_|\__,_|\__, |\__, |_|\___|
              |___/ |___/  gateway
`

// getConfigPath returns the path to the gateway config file.
// Priority: HAGGLE_CONFIG env var > XDG_CONFIG_HOME/haggle/gateway.yaml >
// ~/.config/haggle/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HAGGLE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "haggle", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: haggle-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the negotiation gateway")
		fmt.Println("  init     Create a starter config file")
		fmt.Println("  health   Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	if cfg.Database.Path != "" {
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	} else {
		fmt.Printf("Database: in-memory\n")
	}
	fmt.Println()

	// Persistence collaborator
	var st store.Store
	if cfg.Database.Path != "" {
		st, err = store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
	} else {
		logger.Warn("no database path configured, sessions will not survive restart")
		st = store.NewMockStore()
	}
	defer st.Close()

	// Text-generation collaborator
	var generator negotiation.Generator
	if cfg.Generation.APIKey != "" {
		generator, err = llm.NewGemini(ctx, cfg.Generation.APIKey, cfg.Generation.Model, logger)
		if err != nil {
			return fmt.Errorf("creating generator: %w", err)
		}
	} else {
		logger.Warn("no generation API key configured, using the rule-based generator")
		generator = llm.NewScripted()
	}

	sessions := session.NewStore()
	reg := registry.New(logger)
	svc := negotiation.New(sessions, reg, generator, st, negotiation.Config{
		GenerationTimeout: cfg.Generation.Timeout,
		HistoryWindow:     cfg.Generation.HistoryWindow,
	}, logger)

	logger.Info("starting haggle-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw := gateway.New(cfg, svc, reg, st, logger)
	return gw.Run(ctx)
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configContent := `# haggle-gateway configuration

server:
  http_addr: ":8000"

database:
  # Leave empty for in-memory only.
  path: ""

generation:
  # Without an api_key the rule-based generator is used.
  api_key: "${GEMINI_API_KEY}"
  model: "gemini-2.5-flash"
  timeout: "30s"
  history_window: 6

logging:
  level: "info"
  format: "text"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	url := fmt.Sprintf("http://%s/health", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
