package graphql

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphql
var embeddedSchema string

// LoadSchema parses the schema document at path, or the embedded document when path is
// empty, and checks that every root field has a resolver.
func LoadSchema(path string) (*ast.Schema, error) {
	source := &ast.Source{Name: "schema.graphql", Input: embeddedSchema}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading schema: %w", err)
		}
		source = &ast.Source{Name: path, Input: string(data)}
	}

	schema, err := gqlparser.LoadSchema(source)
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", source.Name, err)
	}
	if err := checkRootFields(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

var resolvable = map[ast.Operation]map[string]bool{
	ast.Query: {
		"hills": true,
	},
	ast.Mutation: {
		"createHill":    true,
		"updateHill":    true,
		"deleteHill":    true,
		"challengeHill": true,
	},
}

func checkRootFields(schema *ast.Schema) error {
	roots := map[ast.Operation]*ast.Definition{
		ast.Query:    schema.Query,
		ast.Mutation: schema.Mutation,
	}
	for op, def := range roots {
		if def == nil {
			continue
		}
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			if !resolvable[op][f.Name] {
				return fmt.Errorf("schema %s field %s.%s has no resolver", op, def.Name, f.Name)
			}
		}
	}
	if schema.Subscription != nil {
		return fmt.Errorf("schema declares subscription type %s: subscriptions are not supported", schema.Subscription.Name)
	}
	return nil
}
