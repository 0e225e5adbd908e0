package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lumehealth/intake/internal/api"
	"github.com/lumehealth/intake/internal/config"
	"github.com/lumehealth/intake/internal/conversation"
	"github.com/lumehealth/intake/internal/question"
	"github.com/lumehealth/intake/internal/storage"
	"github.com/lumehealth/intake/internal/ws"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the intake server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running intake server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show intake system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "intake.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseDurationOr parses a config duration string, logging and substituting
// the fallback on bad input rather than refusing to start.
func parseDurationOr(value, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

// buildCache picks the cache tier: Redis when configured and reachable, the
// in-process cache otherwise. A Redis connection failure degrades to the
// in-process cache instead of aborting startup.
func buildCache(redisURL string, ttl time.Duration) storage.Cache {
	if redisURL == "" {
		slog.Info("using in-process profile cache", "ttl", ttl)
		return storage.NewMemoryCache(ttl)
	}

	cfg := storage.RedisConfig{Addr: redisURL, TTL: ttl}
	if strings.Contains(redisURL, "://") {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("invalid redis URL, using in-process cache", "error", err)
			return storage.NewMemoryCache(ttl)
		}
		cfg.Addr = opts.Addr
		cfg.Password = opts.Password
		cfg.DB = opts.DB
	}

	cache, err := storage.NewRedisCache(cfg)
	if err != nil {
		slog.Warn("redis unavailable, using in-process cache", "addr", cfg.Addr, "error", err)
		return storage.NewMemoryCache(ttl)
	}
	slog.Info("using redis profile cache", "addr", cfg.Addr, "ttl", ttl)
	return cache
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "intake version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	// Refuse a second instance. The health probe catches a live server even
	// when the PID file went missing.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("intake is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("intake is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable tier.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	// Cache tier in front of SQLite.
	cacheTTL := parseDurationOr(cfg.Storage.CacheTTL, "storage.cache_ttl", time.Hour)
	tiered := storage.NewTiered(buildCache(cfg.Storage.RedisURL, cacheTTL), store)

	// Question generator chain: OpenAI, then Gemini, then the built-in
	// fallback the chain appends itself.
	genTimeout := parseDurationOr(cfg.Generator.Timeout, "generator.timeout", 30*time.Second)
	openAI := question.NewOpenAI(question.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: float32(cfg.Generator.Temperature),
		MaxTokens:   cfg.Generator.MaxTokens,
		Timeout:     genTimeout,
	})
	gemini, err := question.NewGemini(ctx, question.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: float32(cfg.Generator.Temperature),
		Timeout:     genTimeout,
	})
	if err != nil {
		return fmt.Errorf("initializing gemini generator: %w", err)
	}
	chain := question.NewChain(openAI, gemini)

	orch := conversation.New(tiered, chain)
	hub := ws.NewHub()
	wsHandler := ws.NewHandler(orch, hub)

	handler := api.NewHandler(api.Deps{
		Store:     tiered,
		Questions: chain,
		Stats:     hub,
		WS:        wsHandler,
		Version:   version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio alongside HTTP.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     tiered,
		Conv:      orch,
		Questions: chain,
		Version:   version,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("intake listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	slog.Info("MCP server started (stdio transport)")

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("intake is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop intake (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to intake (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		statusResp, err := client.get(ctx, "/api/v1/generator/status")
		if err == nil {
			var status struct {
				Providers []struct {
					Name      string `json:"name"`
					Available bool   `json:"available"`
				} `json:"providers"`
			}
			if json.NewDecoder(statusResp.Body).Decode(&status) == nil {
				for _, p := range status.Providers {
					state := "unavailable"
					if p.Available {
						state = "available"
					}
					printStatus("Generator "+p.Name, "%s", state)
				}
			}
			statusResp.Body.Close()
		}

		wsResp, err := client.get(ctx, "/ws/stats")
		if err == nil {
			var stats struct {
				ActiveConnections int `json:"active_connections"`
				TotalSessions     int `json:"total_sessions"`
			}
			if json.NewDecoder(wsResp.Body).Decode(&stats) == nil {
				printStatus("Active conversations", "%d", stats.ActiveConnections)
				printStatus("Total sessions", "%d", stats.TotalSessions)
			}
			wsResp.Body.Close()
		}
	}

	printStatus("OpenAI model", "%s", cfg.OpenAI.Model)
	printStatus("Gemini model", "%s", cfg.Gemini.Model)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
