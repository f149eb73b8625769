// Command carcacity starts the Carcacity game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (each with an environment variable) control the listener, rate
// limiting, robot pacing, lobby defaults, the catalog directory, debug
// logging, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/carcacity/api"
	"github.com/wricardo/carcacity/game/config"
	"github.com/wricardo/carcacity/game/engine"
	"github.com/wricardo/carcacity/game/service"
	"github.com/wricardo/carcacity/game/session"
	"github.com/wricardo/carcacity/transport/mcp"
	"github.com/wricardo/carcacity/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Carcacity Server"
)

// main loads .env, builds the command tree and runs the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Flags are declared on the root and are
// visible to every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "carcacity",
		Usage:          AppName,
		Version:        Version,
		Flags:          settingsFlags(),
		DefaultCommand: "server",
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, starting an internal HTTP API when none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "External API to proxy to before falling back to an internal server",
						Value:   "http://localhost:3001",
						Sources: cli.EnvVars("CARCACITY_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// settingsFlags declares every server option.
func settingsFlags() []cli.Flag {
	d := config.DefaultSettings()
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: d.Host, Usage: "HTTP server host", Sources: cli.EnvVars("CARCACITY_HOST")},
		&cli.IntFlag{Name: "port", Value: d.Port, Usage: "HTTP server port", Sources: cli.EnvVars("PORT", "CARCACITY_PORT")},
		&cli.StringFlag{Name: "cors-origin", Value: d.CORSOrigin, Usage: "Access-Control-Allow-Origin value", Sources: cli.EnvVars("CARCACITY_CORS_ORIGIN")},
		&cli.IntFlag{Name: "rate-limit", Value: d.RateLimit, Usage: "Requests allowed per client IP per rate window", Sources: cli.EnvVars("CARCACITY_RATE_LIMIT")},
		&cli.DurationFlag{Name: "rate-window", Value: d.RateWindow, Usage: "Rate limit window", Sources: cli.EnvVars("CARCACITY_RATE_WINDOW")},
		&cli.StringFlag{Name: "trusted-proxies", Usage: "Comma separated proxy IPs or CIDRs whose X-Forwarded-For is honoured", Sources: cli.EnvVars("CARCACITY_TRUSTED_PROXIES")},
		&cli.DurationFlag{Name: "robot-speed", Value: d.RobotSpeed, Usage: "Pause between robot moves", Sources: cli.EnvVars("CARCACITY_ROBOT_SPEED")},
		&cli.IntFlag{Name: "max-players", Value: d.MaxPlayers, Usage: "Seats per lobby", Sources: cli.EnvVars("CARCACITY_MAX_PLAYERS")},
		&cli.IntFlag{Name: "board-size", Value: d.BoardSize, Usage: "Default board size (odd)", Sources: cli.EnvVars("CARCACITY_BOARD_SIZE")},
		&cli.StringFlag{Name: "colors", Value: strings.Join(d.Colors, ","), Usage: "Comma separated player colours", Sources: cli.EnvVars("CARCACITY_COLORS")},
		&cli.StringFlag{Name: "config-dir", Value: d.CatalogDir, Usage: "Directory containing tile catalogs", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.DurationFlag{Name: "session-ttl", Value: d.SessionTTL, Usage: "Close lobbies idle for longer than this", Sources: cli.EnvVars("CARCACITY_SESSION_TTL")},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("CARCACITY_DEBUG")},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// settingsFromCommand reads and validates the parsed flags.
func settingsFromCommand(cmd *cli.Command) (config.Settings, error) {
	s := config.Settings{
		Host:       cmd.String("host"),
		Port:       cmd.Int("port"),
		CORSOrigin: cmd.String("cors-origin"),
		RateLimit:  cmd.Int("rate-limit"),
		RateWindow: cmd.Duration("rate-window"),
		RobotSpeed: cmd.Duration("robot-speed"),
		MaxPlayers: cmd.Int("max-players"),
		BoardSize:  cmd.Int("board-size"),
		Colors:     config.ParseColors(cmd.String("colors")),
		CatalogDir: cmd.String("config-dir"),
		SessionTTL: cmd.Duration("session-ttl"),
		Debug:      cmd.Bool("debug"),

		TrustedProxies: config.SplitList(cmd.String("trusted-proxies")),
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// setupLogging switches on file:line prefixes in debug mode.
func setupLogging(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// services bundles everything one server process owns.
type services struct {
	settings config.Settings
	sessions *session.Manager
	catalogs *config.Manager
	hub      *websocket.Hub
	game     service.GameService
}

// initializeServices wires the catalog and lobby managers, the broadcast hub
// and the game service. The hub is not started.
func initializeServices(settings config.Settings) (*services, error) {
	catalogs, err := config.NewManager(settings.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessions := session.NewManager()
	hub := websocket.NewHub()

	game := service.NewGameService(sessions, catalogs,
		service.WithDefaults(service.LobbyDefaults{
			BoardSize:  settings.BoardSize,
			MaxPlayers: settings.MaxPlayers,
			Colors:     settings.Colors,
			RobotSpeed: settings.RobotSpeed,
		}),
		service.WithSinks(hub.ForLobby),
	)

	// A closed socket keeps the seat but marks the player away
	hub.SetDisconnectHandler(func(lobbyID, clientID string) {
		err := game.Disconnect(context.Background(), lobbyID, clientID)
		if err != nil && !errors.Is(err, engine.ErrPlayerNotFound) && !errors.Is(err, service.ErrLobbyNotFound) {
			log.Printf("[LOBBY] disconnect %s from %s failed: %v", clientID, lobbyID, err)
		}
	})

	log.Printf("Loaded %d tile catalogs from %s", catalogs.Count(), settings.CatalogDir)

	return &services{
		settings: settings,
		sessions: sessions,
		catalogs: catalogs,
		hub:      hub,
		game:     game,
	}, nil
}

// handler combines the REST API, WebSocket and the /mcp proxy endpoint.
func (s *services) handler(mcpBaseURL string) http.Handler {
	// Settings were validated, so the proxy list parses.
	proxies, _ := config.ParseProxies(s.settings.TrustedProxies)
	apiServer := api.NewServer(s.game, s.hub,
		api.WithRateLimit(s.settings.RateLimit, s.settings.RateWindow),
		api.WithCORSOrigin(s.settings.CORSOrigin),
		api.WithTrustedProxies(proxies...),
	)
	mcpClient := mcp.NewClient(mcpBaseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// localURL is the loopback URL the in-process MCP proxy uses to reach the API.
func localURL(settings config.Settings) string {
	host := settings.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, settings.Port)
}

// sessionCleanupRoutine closes lobbies nobody has touched within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired lobbies", removed)
			}
		}
	}
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	settings, err := settingsFromCommand(cmd)
	if err != nil {
		return err
	}
	setupLogging(settings.Debug)
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svc, err := initializeServices(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	go svc.hub.Run()
	defer svc.hub.Stop()
	defer svc.sessions.CloseAll()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sessionCleanupRoutine(ctx, svc.sessions, settings.SessionTTL)

	addr := settings.Addr()
	mainRouter := svc.handler(localURL(settings))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: %s/api", localURL(settings))
		log.Printf("WebSocket: ws://%s/ws?lobby=<lobby_id>&client=<client_id>", strings.TrimPrefix(localURL(settings), "http://"))
		log.Printf("MCP endpoint: %s/mcp", localURL(settings))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
			cancel()
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?lobby=<lobby_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// apiReachable probes the health endpoint of an external server.
func apiReachable(ctx context.Context, baseURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server. It reuses an external API when one
// answers at --api-url; otherwise it starts an internal HTTP API on a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, err := settingsFromCommand(cmd)
	if err != nil {
		return err
	}
	setupLogging(settings.Debug)

	externalURL := strings.TrimSuffix(cmd.String("api-url"), "/")
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	if apiReachable(ctx, externalURL) {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(settings)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		go svc.hub.Run()
		defer svc.hub.Stop()
		defer svc.sessions.CloseAll()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Printf("Starting internal HTTP server on %s for MCP stdio", baseURL)

		httpServer := &http.Server{Handler: svc.handler(baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API: %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
