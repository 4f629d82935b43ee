// Package graphberry parses backend command flags and starts the HTTP server.
package graphberry

import (
	"context"
	"flag"

	"github.com/graphberry/graphberry/internal/app"
	entrypoint "github.com/graphberry/graphberry/internal/platform/cmd"
)

// Config holds backend command configuration.
type Config struct {
	Addr        string   `env:"GRAPHBERRY_HTTP_ADDR"    envDefault:"localhost:36016"`
	DBPath      string   `env:"GRAPHBERRY_DB_PATH"      envDefault:"data/graphberry.db"`
	EnforceAuth bool     `env:"GRAPHBERRY_ENFORCE_AUTH" envDefault:"true"`
	GraphiQL    bool     `env:"GRAPHBERRY_GRAPHIQL"     envDefault:"true"`
	CORSOrigins []string `env:"GRAPHBERRY_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite login ledger path")
	fs.BoolVar(&cfg.EnforceAuth, "enforce-auth", cfg.EnforceAuth, "Require a verified session on GraphQL requests")
	fs.BoolVar(&cfg.GraphiQL, "graphiql", cfg.GraphiQL, "Serve the GraphiQL IDE on browser requests")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the GraphQL backend service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGraphberry, func(context.Context) error {
		return app.Run(ctx, app.Config{
			Addr:        cfg.Addr,
			DBPath:      cfg.DBPath,
			EnforceAuth: cfg.EnforceAuth,
			GraphiQL:    cfg.GraphiQL,
			CORSOrigins: cfg.CORSOrigins,
		})
	})
}
