package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Database is a handle on one MongoDB database.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, verifies the connection and selects the named database.
func Connect(ctx context.Context, uri, name string) (*Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &Database{client: client, db: client.Database(name)}, nil
}

// NewDatabase wraps an already connected database.
func NewDatabase(db *mongo.Database) *Database {
	return &Database{client: db.Client(), db: db}
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.db.Name()
}

// Close disconnects the underlying client.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// NewRepo returns the repository for a collection of T.
func NewRepo[T Identifiable](d *Database, collection string) Repo[T] {
	return &mongoRepo[T]{coll: d.db.Collection(collection)}
}

type mongoRepo[T Identifiable] struct {
	coll *mongo.Collection
}

// idOnly is the projection used when only identifiers are needed.
var idOnly = bson.M{"_id": 1}

type idDoc struct {
	ID any `bson:"_id"`
}

func (r *mongoRepo[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	if err := r.coll.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		return doc, r.wrap("get "+id, err)
	}
	return doc, nil
}

func (r *mongoRepo[T]) Project(ctx context.Context, id string, projection Projection) (bson.M, error) {
	var out bson.M
	err := r.coll.FindOne(ctx, idFilter(id), options.FindOne().SetProjection(projection)).Decode(&out)
	if err != nil {
		return nil, r.wrap("project "+id, err)
	}
	return out, nil
}

func (r *mongoRepo[T]) Add(ctx context.Context, doc T) (string, error) {
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", r.wrap("add", err)
	}
	return idString(res.InsertedID), nil
}

func (r *mongoRepo[T]) AddOrUpdate(ctx context.Context, doc T) (string, error) {
	id := doc.DocumentID()
	if id == "" {
		return r.Add(ctx, doc)
	}
	repl, err := replacement(doc)
	if err != nil {
		return "", r.wrap("add or update "+id, err)
	}
	if _, err := r.coll.ReplaceOne(ctx, idFilter(id), repl, options.Replace().SetUpsert(true)); err != nil {
		return "", r.wrap("add or update "+id, err)
	}
	return id, nil
}

func (r *mongoRepo[T]) Update(ctx context.Context, doc T) (string, error) {
	id := doc.DocumentID()
	if id == "" {
		return "", r.wrap("update", ErrMissingID)
	}
	repl, err := replacement(doc)
	if err != nil {
		return "", r.wrap("update "+id, err)
	}
	res, err := r.coll.ReplaceOne(ctx, idFilter(id), repl)
	if err != nil {
		return "", r.wrap("update "+id, err)
	}
	if res.MatchedCount == 0 {
		return "", r.wrap("update "+id, mongo.ErrNoDocuments)
	}
	return id, nil
}

func (r *mongoRepo[T]) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return false, r.wrap("remove "+id, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo[T]) GetOne(ctx context.Context, criteria Filter) (T, error) {
	var doc T
	if err := r.coll.FindOne(ctx, orAll(criteria)).Decode(&doc); err != nil {
		return doc, r.wrap("get one", err)
	}
	return doc, nil
}

func (r *mongoRepo[T]) ProjectOne(ctx context.Context, criteria Filter, projection Projection) (bson.M, error) {
	var out bson.M
	err := r.coll.FindOne(ctx, orAll(criteria), options.FindOne().SetProjection(projection)).Decode(&out)
	if err != nil {
		return nil, r.wrap("project one", err)
	}
	return out, nil
}

// AddOrUpdateOne replaces the first match or inserts doc. The stored _id is kept on
// replace and generated by the store on insert.
func (r *mongoRepo[T]) AddOrUpdateOne(ctx context.Context, criteria Filter, doc T) (string, error) {
	repl, err := replacement(doc)
	if err != nil {
		return "", r.wrap("add or update one", err)
	}
	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(idOnly)

	var out idDoc
	if err := r.coll.FindOneAndReplace(ctx, orAll(criteria), repl, opts).Decode(&out); err != nil {
		return "", r.wrap("add or update one", err)
	}
	return idString(out.ID), nil
}

func (r *mongoRepo[T]) UpdateOne(ctx context.Context, criteria Filter, changes Fields) (string, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(idOnly)

	var out idDoc
	if err := r.coll.FindOneAndUpdate(ctx, orAll(criteria), bson.M{"$set": changes}, opts).Decode(&out); err != nil {
		return "", r.wrap("update one", err)
	}
	return idString(out.ID), nil
}

func (r *mongoRepo[T]) RemoveOne(ctx context.Context, criteria Filter) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, orAll(criteria))
	if err != nil {
		return false, r.wrap("remove one", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo[T]) GetAll(ctx context.Context, criteria Filter, page Page) ([]T, error) {
	cur, err := r.coll.Find(ctx, orAll(criteria), findOptions(page))
	if err != nil {
		return nil, r.wrap("get all", err)
	}
	docs := make([]T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, r.wrap("get all", err)
	}
	return docs, nil
}

func (r *mongoRepo[T]) ProjectAll(ctx context.Context, criteria Filter, projection Projection, page Page) ([]bson.M, error) {
	cur, err := r.coll.Find(ctx, orAll(criteria), findOptions(page).SetProjection(projection))
	if err != nil {
		return nil, r.wrap("project all", err)
	}
	docs := make([]bson.M, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, r.wrap("project all", err)
	}
	return docs, nil
}

// AddOrUpdateAll applies changes to every match, inserting one record when nothing matches.
func (r *mongoRepo[T]) AddOrUpdateAll(ctx context.Context, criteria Filter, changes Fields) ([]string, error) {
	raw, err := r.matchedIDs(ctx, criteria)
	if err != nil {
		return nil, r.wrap("add or update all", err)
	}
	res, err := r.coll.UpdateMany(ctx, orAll(criteria), bson.M{"$set": changes}, options.Update().SetUpsert(true))
	if err != nil {
		return nil, r.wrap("add or update all", err)
	}
	ids := idStrings(raw)
	if res.UpsertedID != nil {
		ids = append(ids, idString(res.UpsertedID))
	}
	return ids, nil
}

// UpdateAll applies changes to the records matching criteria when the call starts.
func (r *mongoRepo[T]) UpdateAll(ctx context.Context, criteria Filter, changes Fields) ([]string, error) {
	raw, err := r.matchedIDs(ctx, criteria)
	if err != nil {
		return nil, r.wrap("update all", err)
	}
	if len(raw) == 0 {
		return []string{}, nil
	}
	if _, err := r.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": raw}}, bson.M{"$set": changes}); err != nil {
		return nil, r.wrap("update all", err)
	}
	return idStrings(raw), nil
}

// RemoveAll deletes every match and reports one true per removed record.
func (r *mongoRepo[T]) RemoveAll(ctx context.Context, criteria Filter) ([]bool, error) {
	res, err := r.coll.DeleteMany(ctx, orAll(criteria))
	if err != nil {
		return nil, r.wrap("remove all", err)
	}
	removed := make([]bool, res.DeletedCount)
	for i := range removed {
		removed[i] = true
	}
	return removed, nil
}

func (r *mongoRepo[T]) Count(ctx context.Context, criteria Filter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, orAll(criteria))
	if err != nil {
		return 0, r.wrap("count", err)
	}
	return n, nil
}

func (r *mongoRepo[T]) matchedIDs(ctx context.Context, criteria Filter) ([]any, error) {
	cur, err := r.coll.Find(ctx, orAll(criteria), options.Find().SetProjection(idOnly))
	if err != nil {
		return nil, err
	}
	var docs []idDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	raw := make([]any, len(docs))
	for i, d := range docs {
		raw[i] = d.ID
	}
	return raw, nil
}

func (r *mongoRepo[T]) wrap(op string, err error) error {
	return fmt.Errorf("%s: %s: %w", r.coll.Name(), op, err)
}

// idFilter addresses a record by id. 24-hex ids are ObjectIDs.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func orAll(criteria Filter) Filter {
	if criteria == nil {
		return Filter{}
	}
	return criteria
}

func findOptions(page Page) *options.FindOptions {
	opts := options.Find()
	if len(page.Sort) > 0 {
		opts.SetSort(page.Sort)
	}
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}
	if page.Take > 0 {
		opts.SetLimit(page.Take)
	}
	return opts
}

// replacement encodes doc without its _id so replaces never touch the stored key.
func replacement(doc any) (bson.D, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	out := d[:0]
	for _, e := range d {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return out, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func idStrings(raw []any) []string {
	ids := make([]string, len(raw))
	for i, v := range raw {
		ids[i] = idString(v)
	}
	return ids
}
