// Package mock provides an in-memory document repository for testing.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/corewar/corewar-api/pkg/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrCriteria is returned for criteria other than "match everything".
var ErrCriteria = errors.New("mock: only empty criteria are supported")

// Repo keeps documents in a map keyed by id. Operations taking criteria accept only nil or
// empty filters. Setting Err makes every operation fail with it.
type Repo[T docstore.Identifiable] struct {
	Err error

	mu    sync.Mutex
	docs  map[string]T
	order []string
}

// New creates an empty repository.
func New[T docstore.Identifiable]() *Repo[T] {
	return &Repo[T]{docs: make(map[string]T)}
}

// Docs returns the stored documents in insertion order.
func (r *Repo[T]) Docs() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.docs[id])
	}
	return out
}

func (r *Repo[T]) Get(ctx context.Context, id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.Err != nil {
		return zero, r.Err
	}
	doc, ok := r.docs[id]
	if !ok {
		return zero, fmt.Errorf("get %s: %w", id, mongo.ErrNoDocuments)
	}
	return doc, nil
}

func (r *Repo[T]) Project(ctx context.Context, id string, projection docstore.Projection) (bson.M, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return project(doc, projection)
}

func (r *Repo[T]) Add(ctx context.Context, doc T) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	id := doc.DocumentID()
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	if _, ok := r.docs[id]; ok {
		return "", fmt.Errorf("add %s: duplicate key", id)
	}
	r.put(id, doc)
	return id, nil
}

func (r *Repo[T]) AddOrUpdate(ctx context.Context, doc T) (string, error) {
	if doc.DocumentID() == "" {
		return r.Add(ctx, doc)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	r.put(doc.DocumentID(), doc)
	return doc.DocumentID(), nil
}

func (r *Repo[T]) Update(ctx context.Context, doc T) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	id := doc.DocumentID()
	if id == "" {
		return "", docstore.ErrMissingID
	}
	if _, ok := r.docs[id]; !ok {
		return "", fmt.Errorf("update %s: %w", id, mongo.ErrNoDocuments)
	}
	r.docs[id] = doc
	return id, nil
}

func (r *Repo[T]) Remove(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	return r.delete(id), nil
}

func (r *Repo[T]) GetOne(ctx context.Context, criteria docstore.Filter) (T, error) {
	var zero T
	all, err := r.GetAll(ctx, criteria, docstore.Page{Take: 1})
	if err != nil {
		return zero, err
	}
	if len(all) == 0 {
		return zero, mongo.ErrNoDocuments
	}
	return all[0], nil
}

func (r *Repo[T]) ProjectOne(ctx context.Context, criteria docstore.Filter, projection docstore.Projection) (bson.M, error) {
	doc, err := r.GetOne(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return project(doc, projection)
}

func (r *Repo[T]) AddOrUpdateOne(ctx context.Context, criteria docstore.Filter, doc T) (string, error) {
	if err := checkCriteria(criteria); err != nil {
		return "", err
	}
	return r.AddOrUpdate(ctx, doc)
}

func (r *Repo[T]) UpdateOne(ctx context.Context, criteria docstore.Filter, changes docstore.Fields) (string, error) {
	return "", ErrCriteria
}

func (r *Repo[T]) RemoveOne(ctx context.Context, criteria docstore.Filter) (bool, error) {
	if err := checkCriteria(criteria); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	if len(r.order) == 0 {
		return false, nil
	}
	return r.delete(r.order[0]), nil
}

func (r *Repo[T]) GetAll(ctx context.Context, criteria docstore.Filter, page docstore.Page) ([]T, error) {
	if err := checkCriteria(criteria); err != nil {
		return nil, err
	}
	if len(page.Sort) > 0 {
		return nil, errors.New("mock: sorting is not supported")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	ids := r.order
	if page.Skip > 0 {
		ids = ids[min(int(page.Skip), len(ids)):]
	}
	if page.Take > 0 && int(page.Take) < len(ids) {
		ids = ids[:page.Take]
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.docs[id])
	}
	return out, nil
}

func (r *Repo[T]) ProjectAll(ctx context.Context, criteria docstore.Filter, projection docstore.Projection, page docstore.Page) ([]bson.M, error) {
	docs, err := r.GetAll(ctx, criteria, page)
	if err != nil {
		return nil, err
	}
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		m, err := project(doc, projection)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Repo[T]) AddOrUpdateAll(ctx context.Context, criteria docstore.Filter, changes docstore.Fields) ([]string, error) {
	return nil, ErrCriteria
}

func (r *Repo[T]) UpdateAll(ctx context.Context, criteria docstore.Filter, changes docstore.Fields) ([]string, error) {
	return nil, ErrCriteria
}

func (r *Repo[T]) RemoveAll(ctx context.Context, criteria docstore.Filter) ([]bool, error) {
	if err := checkCriteria(criteria); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	removed := make([]bool, len(r.order))
	for i := range removed {
		removed[i] = true
	}
	r.docs = make(map[string]T)
	r.order = nil
	return removed, nil
}

func (r *Repo[T]) Count(ctx context.Context, criteria docstore.Filter) (int64, error) {
	if err := checkCriteria(criteria); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	return int64(len(r.docs)), nil
}

func (r *Repo[T]) put(id string, doc T) {
	if _, ok := r.docs[id]; !ok {
		r.order = append(r.order, id)
	}
	r.docs[id] = doc
}

func (r *Repo[T]) delete(id string) bool {
	if _, ok := r.docs[id]; !ok {
		return false
	}
	delete(r.docs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func checkCriteria(criteria docstore.Filter) error {
	if len(criteria) > 0 {
		return ErrCriteria
	}
	return nil
}

// project round-trips doc through BSON and keeps the included fields plus _id.
func project(doc any, projection docstore.Projection) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var full bson.M
	if err := bson.Unmarshal(data, &full); err != nil {
		return nil, err
	}
	if len(projection) == 0 {
		return full, nil
	}

	out := bson.M{}
	if id, ok := full["_id"]; ok {
		out["_id"] = id
	}
	for k := range projection {
		if v, ok := full[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

var _ docstore.Repo[docstore.Identifiable] = (*Repo[docstore.Identifiable])(nil)
