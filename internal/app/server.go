package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/graphberry/graphberry/internal/auth"
	"github.com/graphberry/graphberry/internal/graph"
	"github.com/graphberry/graphberry/internal/platform/httpx"
	"github.com/graphberry/graphberry/internal/storage/sqlite"
	"github.com/graphberry/graphberry/internal/stytch"
)

const (
	shutdownTimeout     = 10 * time.Second
	jwksRefreshInterval = 15 * time.Minute
)

// Config defines the inputs for the backend server.
type Config struct {
	// Addr is the TCP listen address, e.g. "localhost:36016".
	Addr string
	// DBPath locates the SQLite login ledger. Empty selects data/graphberry.db.
	DBPath string
	// EnforceAuth requires a verified Stytch session on the GraphQL route.
	EnforceAuth bool
	// GraphiQL serves the GraphiQL IDE on browser GETs to /graphql.
	GraphiQL bool
	// CORSOrigins lists allowed cross-origin callers. "*" admits any origin.
	CORSOrigins []string
}

// Server hosts the GraphQL backend HTTP server.
type Server struct {
	config     Config
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	stytch     *stytch.Client
}

// New builds a server listening on cfg.Addr with all routes registered.
func New(cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	store, err := openLedger(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	stytchCfg, err := stytch.LoadConfigFromEnv()
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("load stytch config: %w", err)
	}
	client, err := stytch.NewClient(stytchCfg)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init stytch client: %w", err)
	}

	schema, err := graph.NewSchema(graph.NewResolvers(store, stytchCfg.Environment))
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build schema: %w", err)
	}

	mux := http.NewServeMux()
	auth.NewHandlers(client, store).RegisterRoutes(mux)
	requireSession := auth.RequireSession(client, cfg.EnforceAuth)
	mux.Handle("/graphql", requireSession(graph.NewHandler(&schema, cfg.GraphiQL)))
	if cfg.GraphiQL {
		mux.Handle("/graphql/graphiql", requireSession(graph.NewHandler(&schema, true)))
	}
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	handler := httpx.Chain(mux,
		httpx.RequestID(),
		httpx.Logging(),
		httpx.RecoverPanic(),
		httpx.CORS(cfg.CORSOrigins),
	)

	return &Server{
		config:     cfg,
		listener:   listener,
		httpServer: &http.Server{Handler: otelhttp.NewHandler(handler, "graphberry")},
		store:      store,
		stytch:     client,
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a backend server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeStore()

	// Session JWTs are only inspected when enforcement is on, so the
	// signing keys are only fetched then.
	if s.config.EnforceAuth && s.stytch != nil {
		go func() {
			if err := s.stytch.RefreshKeys(serverCtx); err != nil {
				log.Printf("refresh stytch jwks: %v", err)
			}
		}()
		s.stytch.StartKeyRefresh(serverCtx, jwksRefreshInterval)
	}

	log.Printf("graphql backend listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func openLedger(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "graphberry.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open login ledger: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close login ledger: %v", err)
		}
	}
}
