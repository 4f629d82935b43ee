package graph

import (
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
)

// NewHandler serves GraphQL over HTTP. With graphiql enabled, browser GET
// requests render the GraphiQL IDE instead of executing a query.
func NewHandler(schema *graphql.Schema, graphiql bool) http.Handler {
	return handler.New(&handler.Config{
		Schema:   schema,
		Pretty:   true,
		GraphiQL: graphiql,
	})
}
