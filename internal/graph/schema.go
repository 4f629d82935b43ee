package graph

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/graphberry/graphberry/internal/auth"
	"github.com/graphberry/graphberry/internal/storage"
)

// Version reported by the about query.
const Version = "1.0.1"

// Resolvers holds the dependencies GraphQL fields resolve against.
type Resolvers struct {
	users    storage.UserStore
	env      string
	clock    func() time.Time
	hostname func() (string, error)
}

// NewResolvers builds resolvers around the login ledger and environment name.
func NewResolvers(users storage.UserStore, env string) *Resolvers {
	return &Resolvers{
		users:    users,
		env:      env,
		clock:    time.Now,
		hostname: os.Hostname,
	}
}

// NewSchema assembles the executable schema.
func NewSchema(resolvers *Resolvers) (graphql.Schema, error) {
	if resolvers == nil {
		return graphql.Schema{}, errors.New("resolvers are required")
	}

	ack := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ack",
		Fields: graphql.Fields{
			"ok":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"msg": &graphql.Field{Type: graphql.String},
		},
	})

	about := graphql.NewObject(graphql.ObjectConfig{
		Name: "About",
		Fields: graphql.Fields{
			"env":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"version":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"hostedAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"node":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"serverTime": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	viewer := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewer",
		Fields: graphql.Fields{
			"userId":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"sessionId":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":       &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"provider":    &graphql.Field{Type: graphql.String},
			"lastLoginAt": &graphql.Field{Type: graphql.String},
			"logins":      &graphql.Field{Type: graphql.Int},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{Type: graphql.NewNonNull(ack), Resolve: resolvers.resolveHello},
			"about": &graphql.Field{Type: graphql.NewNonNull(about), Resolve: resolvers.resolveAbout},
			"me":    &graphql.Field{Type: viewer, Resolve: resolvers.resolveMe},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"ping": &graphql.Field{Type: graphql.NewNonNull(ack), Resolve: resolvers.resolvePing},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

func (r *Resolvers) resolveHello(graphql.ResolveParams) (any, error) {
	return map[string]any{"ok": true, "msg": "Authentication successful"}, nil
}

func (r *Resolvers) resolvePing(graphql.ResolveParams) (any, error) {
	return map[string]any{"ok": true, "msg": "Ping successful"}, nil
}

func (r *Resolvers) resolveAbout(graphql.ResolveParams) (any, error) {
	node := "localhost"
	if name, err := r.hostname(); err == nil && name != "" {
		node = name
	}
	return map[string]any{
		"env":        r.env,
		"version":    Version,
		"hostedAt":   node,
		"node":       node,
		"serverTime": r.clock().UTC().Format(time.RFC3339),
	}, nil
}

// resolveMe reports the verified session identity, enriched with the
// ledger row when one exists.
func (r *Resolvers) resolveMe(p graphql.ResolveParams) (any, error) {
	session, ok := auth.SessionFromContext(p.Context)
	if !ok {
		return nil, errors.New("no verified session")
	}
	payload := map[string]any{
		"userId":    session.UserID,
		"sessionId": session.SessionID,
	}
	if r.users == nil {
		return payload, nil
	}

	user, err := r.users.GetUser(p.Context, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return payload, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	payload["email"] = user.Email
	payload["name"] = user.Name
	payload["provider"] = user.Provider
	payload["lastLoginAt"] = user.LastLoginAt.UTC().Format(time.RFC3339)
	payload["logins"] = user.Logins
	return payload, nil
}
