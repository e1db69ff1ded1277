// Package docstore describes generic CRUD over a document-store collection and
// implements it on MongoDB.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Identifiable is a record addressable by identifier.
type Identifiable interface {
	DocumentID() string
}

// Filter selects records using MongoDB query syntax. A nil Filter matches every record.
type Filter = bson.M

// Projection selects the fields returned by the Project family.
type Projection = bson.M

// Fields is a partial record applied with $set.
type Fields = bson.M

// Page controls ordering and windowing of plural reads. The zero value reads everything
// in natural order.
type Page struct {
	Sort bson.D
	Skip int64
	Take int64
}

// Repo is the CRUD capability over one collection of T.
// Errors from the store are returned wrapped but otherwise untranslated.
type Repo[T Identifiable] interface {
	Get(ctx context.Context, id string) (T, error)
	Project(ctx context.Context, id string, projection Projection) (bson.M, error)
	Add(ctx context.Context, doc T) (string, error)
	AddOrUpdate(ctx context.Context, doc T) (string, error)
	Update(ctx context.Context, doc T) (string, error)
	Remove(ctx context.Context, id string) (bool, error)

	GetOne(ctx context.Context, criteria Filter) (T, error)
	ProjectOne(ctx context.Context, criteria Filter, projection Projection) (bson.M, error)
	AddOrUpdateOne(ctx context.Context, criteria Filter, doc T) (string, error)
	UpdateOne(ctx context.Context, criteria Filter, changes Fields) (string, error)
	RemoveOne(ctx context.Context, criteria Filter) (bool, error)

	GetAll(ctx context.Context, criteria Filter, page Page) ([]T, error)
	ProjectAll(ctx context.Context, criteria Filter, projection Projection, page Page) ([]bson.M, error)
	AddOrUpdateAll(ctx context.Context, criteria Filter, changes Fields) ([]string, error)
	UpdateAll(ctx context.Context, criteria Filter, changes Fields) ([]string, error)
	RemoveAll(ctx context.Context, criteria Filter) ([]bool, error)

	Count(ctx context.Context, criteria Filter) (int64, error)
}

// ErrMissingID is returned by operations that need the record's identifier.
var ErrMissingID = errors.New("document has no id")

// ProjectAs decodes a projected document into P.
func ProjectAs[P any](raw bson.M) (P, error) {
	var out P
	data, err := bson.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("encoding projection: %w", err)
	}
	if err := bson.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding projection: %w", err)
	}
	return out, nil
}
