package cli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mchmarny/dropwatch/pkg/metrics"
	"github.com/mchmarny/dropwatch/pkg/model"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20

	portFlag      = "port"
	noBrowserFlag = "no-browser"
)

//go:embed assets/* templates/*
var embedFS embed.FS

func newServerCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server with the risk dashboard",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			&urfave.IntFlag{
				Name:  portFlag,
				Usage: "Port on which the server will listen (default: from config)",
			},
			&urfave.BoolFlag{
				Name:    noBrowserFlag,
				Aliases: []string{"nb"},
				Usage:   "Do not open browser automatically",
			},
		},
	}
}

// modelStore holds the active model. Requests read it concurrently while
// an upload replaces it.
type modelStore struct {
	mu    sync.RWMutex
	path  string
	model *model.Model
}

func (s *modelStore) get() *model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *modelStore) set(m *model.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
}

// server carries the state shared by the HTTP handlers.
type server struct {
	models  *modelStore
	metrics *metrics.Metrics
	top     int
}

func newServer(modelPath string, top int) *server {
	s := &server{
		models:  &modelStore{path: modelPath},
		metrics: metrics.New(),
		top:     top,
	}

	m, found, err := model.LoadIfExists(modelPath)
	switch {
	case err != nil:
		slog.Warn("model could not be loaded, upload a new one", "path", modelPath, "error", err)
	case !found:
		slog.Info("no model found, upload one to start scoring", "path", modelPath)
	default:
		slog.Info("model loaded", "path", modelPath, "kind", m.Info().Kind, "features", m.Info().Features)
		s.models.set(m)
	}
	s.metrics.SetModelLoaded(s.models.get() != nil)

	return s
}

func cmdStartServer(ctx context.Context, c *urfave.Command) error {
	cfg := getConfig(ctx)

	port := cfg.Config.Port
	if c.IsSet(portFlag) {
		port = c.Int(portFlag)
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)

	srv := newServer(cfg.ModelPath, cfg.Config.Top)
	s := &http.Server{
		Addr:           address,
		Handler:        srv.makeRouter(),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error shutting down server: %w", err)
		}
		slog.Info("server stopped")
		return nil
	})

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url)

	if !c.Bool(noBrowserFlag) && !cfg.Config.NoBrowser {
		openBrowser(url)
	}

	return g.Wait()
}

// staticFS serves only the assets directory, never the templates.
func staticFS() fs.FS {
	sub, err := fs.Sub(embedFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// noListing answers directory requests with 404 instead of an index page.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) makeRouter() http.Handler {
	tmpl := template.Must(template.New("").Funcs(viewFuncs).ParseFS(embedFS, "templates/*.html"))

	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", noListing(http.FileServerFS(staticFS()))))
	mux.HandleFunc("GET /favicon.ico", faviconHandler)

	// Views
	mux.HandleFunc("GET /{$}", homeViewHandler(tmpl, s))

	// Model API
	mux.HandleFunc("GET /api/model", modelInfoAPIHandler(s))
	mux.HandleFunc("POST /api/model", modelUploadAPIHandler(s))

	// Scoring API
	mux.HandleFunc("POST /api/score", scoreAPIHandler(s))

	// Ops
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return requestLogger(s.metrics, mux)
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}
