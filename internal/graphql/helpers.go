package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/vektah/gqlparser/v2/ast"
)

// rulesArg and warriorArg decode the RulesInput and WarriorInput arguments.
type rulesArg struct {
	corewar.Rules
}

type warriorArg struct {
	corewar.Warrior
}

func warriors(in []warriorArg) []corewar.Warrior {
	out := make([]corewar.Warrior, len(in))
	for i, w := range in {
		out[i] = w.Warrior
	}
	return out
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// decodeArgs maps coerced argument values onto a typed struct through their JSON form.
func decodeArgs(args map[string]any, out any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return nil
}

// toGeneric converts a resolver result into maps and slices keyed by JSON field name,
// which match the schema field names.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return out, nil
}

// complete shapes a generic value to the selection set requested for typ.
func complete(typ *ast.Type, sel ast.SelectionSet, v any, vars map[string]any) any {
	if v == nil {
		return nil
	}
	if typ.Elem != nil {
		list, ok := v.([]any)
		if !ok {
			return nil
		}
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = complete(typ.Elem, sel, item, vars)
		}
		return out
	}
	if len(sel) == 0 {
		return v
	}

	src, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	obj := newObject()
	for _, field := range collectFields(sel, typ.Name(), vars) {
		key := responseKey(field)
		if field.Name == "__typename" {
			obj.set(key, typ.Name())
			continue
		}
		if field.Definition == nil {
			obj.set(key, nil)
			continue
		}
		obj.set(key, complete(field.Definition.Type, field.SelectionSet, src[field.Name], vars))
	}
	return obj
}

// collectFields flattens fragments and applies @skip/@include. Fields sharing a response
// key are merged. The schema has no abstract types, so a type condition matches only its
// own object type.
func collectFields(set ast.SelectionSet, typeName string, vars map[string]any) []*ast.Field {
	var fields []*ast.Field
	index := make(map[string]int)

	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if !included(s.Directives, vars) {
					continue
				}
				key := responseKey(s)
				if i, ok := index[key]; ok {
					merged := *fields[i]
					merged.SelectionSet = append(append(ast.SelectionSet{}, fields[i].SelectionSet...), s.SelectionSet...)
					fields[i] = &merged
					continue
				}
				index[key] = len(fields)
				fields = append(fields, s)
			case *ast.InlineFragment:
				if included(s.Directives, vars) && applies(s.TypeCondition, typeName) {
					walk(s.SelectionSet)
				}
			case *ast.FragmentSpread:
				if s.Definition != nil && included(s.Directives, vars) && applies(s.Definition.TypeCondition, typeName) {
					walk(s.Definition.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return fields
}

func included(dirs ast.DirectiveList, vars map[string]any) bool {
	if d := dirs.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(vars)["if"].(bool); skip {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

func applies(condition, typeName string) bool {
	return condition == "" || condition == typeName
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// object is a JSON object that keeps insertion order, as GraphQL responses must.
type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: make(map[string]any)}
}

func (o *object) set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
