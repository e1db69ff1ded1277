package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gql "github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Executor is the gqlgen executable schema for the hills API. gqlgen's handler parses,
// validates and coerces the request; Exec dispatches root fields to the resolver and shapes
// results to the selection set.
type Executor struct {
	schema   *ast.Schema
	resolver *Resolver
	tracer   trace.Tracer
}

// NewExecutor creates an executor for schema.
func NewExecutor(schema *ast.Schema, resolver *Resolver) *Executor {
	return &Executor{
		schema:   schema,
		resolver: resolver,
		tracer:   otel.Tracer("github.com/corewar/corewar-api/internal/graphql"),
	}
}

// Schema returns the loaded schema.
func (e *Executor) Schema() *ast.Schema {
	return e.schema
}

// Complexity counts every field as one plus its children.
func (e *Executor) Complexity(ctx context.Context, typeName, fieldName string, childComplexity int, args map[string]any) (int, bool) {
	return childComplexity + 1, true
}

// Exec runs the operation held in the request's operation context.
func (e *Executor) Exec(ctx context.Context) gql.ResponseHandler {
	start := time.Now()
	opCtx := gql.GetOperationContext(ctx)
	op := opCtx.Operation

	name := operationName(op)
	ctx, span := e.tracer.Start(ctx, "graphql."+string(op.Operation),
		trace.WithAttributes(
			attribute.String("graphql.operation.type", string(op.Operation)),
			attribute.String("graphql.operation.name", name),
		),
	)
	defer span.End()

	resp := e.run(ctx, op, opCtx.Variables)
	failed := len(resp.Errors) > 0
	if failed {
		span.SetStatus(codes.Error, resp.Errors.Error())
	}
	e.record(name, start, failed)
	return gql.OneShot(resp)
}

func (e *Executor) run(ctx context.Context, op *ast.OperationDefinition, vars map[string]any) *gql.Response {
	var root *ast.Definition
	switch op.Operation {
	case ast.Query:
		root = e.schema.Query
	case ast.Mutation:
		root = e.schema.Mutation
	default:
		return errorResponse(gqlerror.Errorf("%s operations are not supported", op.Operation))
	}
	if root == nil {
		return errorResponse(gqlerror.Errorf("schema does not define a %s type", op.Operation))
	}

	data := newObject()
	nullData := false
	var fieldErrs gqlerror.List
	// Root fields run one after another in document order, which mutations require.
	for _, field := range collectFields(op.SelectionSet, root.Name, vars) {
		key := responseKey(field)
		if field.Name == "__typename" {
			data.set(key, root.Name)
			continue
		}

		value, err := e.resolveRoot(ctx, op.Operation, field, field.ArgumentMap(vars))
		if err == nil {
			value, err = toGeneric(value)
		}
		if err != nil {
			fieldErrs = append(fieldErrs, fieldError(field, key, err))
			data.set(key, nil)
			// A failed non-null root field nulls the whole data entry.
			if field.Definition.Type.NonNull {
				nullData = true
			}
			continue
		}
		data.set(key, complete(field.Definition.Type, field.SelectionSet, value, vars))
	}

	if nullData {
		return &gql.Response{Data: json.RawMessage("null"), Errors: fieldErrs}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return errorResponse(gqlerror.Wrap(fmt.Errorf("encoding response: %w", err)))
	}
	return &gql.Response{Data: raw, Errors: fieldErrs}
}

func (e *Executor) resolveRoot(ctx context.Context, op ast.Operation, field *ast.Field, args map[string]any) (any, error) {
	switch op {
	case ast.Query:
		q := e.resolver.Query()
		switch field.Name {
		case "hills":
			return q.Hills(ctx, optionalString(args["id"]))
		}

	case ast.Mutation:
		m := e.resolver.Mutation()
		switch field.Name {
		case "createHill":
			var in struct {
				Rules rulesArg `json:"rules"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			return m.CreateHill(ctx, in.Rules.Rules)

		case "updateHill":
			var in struct {
				ID       string       `json:"id"`
				Rules    rulesArg     `json:"rules"`
				Warriors []warriorArg `json:"warriors"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			return m.UpdateHill(ctx, in.ID, in.Rules.Rules, warriors(in.Warriors))

		case "deleteHill":
			var in struct {
				ID string `json:"id"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			return m.DeleteHill(ctx, in.ID)

		case "challengeHill":
			var in struct {
				ID      string `json:"id"`
				Redcode string `json:"redcode"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			return m.ChallengeHill(ctx, in.ID, in.Redcode)
		}
	}
	return nil, fmt.Errorf("no resolver for %s field %s", op, field.Name)
}

func (e *Executor) record(operation string, start time.Time, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	e.resolver.Metrics.RecordRequest(operation, status, time.Since(start).Seconds())
}

// operationName labels an operation by its name, or by its first root field when anonymous.
func operationName(op *ast.OperationDefinition) string {
	if op.Name != "" {
		return op.Name
	}
	for _, sel := range op.SelectionSet {
		if f, ok := sel.(*ast.Field); ok {
			return f.Name
		}
	}
	return string(op.Operation)
}

func errorResponse(err *gqlerror.Error) *gql.Response {
	return &gql.Response{Errors: gqlerror.List{err}}
}

func fieldError(field *ast.Field, key string, err error) *gqlerror.Error {
	gqlErr := &gqlerror.Error{
		Err:     err,
		Message: err.Error(),
		Path:    ast.Path{ast.PathName(key)},
	}
	if field.Position != nil {
		gqlErr.Locations = []gqlerror.Location{{Line: field.Position.Line, Column: field.Position.Column}}
	}
	return gqlErr
}
