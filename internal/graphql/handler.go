package graphql

import (
	"context"

	gql "github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

// ComplexityLimit bounds the fields a single operation may select.
const ComplexityLimit = 200

// NewHandler serves exec over HTTP. POST takes a JSON body; GET takes query, operationName
// and variables parameters and only runs queries.
func NewHandler(exec *Executor, logger *otelzap.Logger) *handler.Server {
	srv := handler.New(exec)
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))
	srv.Use(extension.FixedComplexityLimit(ComplexityLimit))

	srv.AroundResponses(func(ctx context.Context, next gql.ResponseHandler) *gql.Response {
		resp := next(ctx)
		if resp != nil && len(resp.Errors) > 0 {
			oc := gql.GetOperationContext(ctx)
			logger.Ctx(ctx).Warn("GraphQL errors",
				zap.String("operation_name", oc.OperationName),
				zap.String("raw_query", oc.RawQuery),
				zap.Any("variables", oc.Variables),
				zap.String("errors", resp.Errors.Error()),
			)
		}
		return resp
	})
	return srv
}
