package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slog"
)

// revField holds the record revision used for compare-and-swap commits. Revisions are
// fresh ObjectIDs, so a deleted and recreated record never repeats one.
const revField = "_rev"

var _ repositories.Collection[models.Team] = (*DocumentRepository[models.Team])(nil)

// envelope is the stored shape of a record: the document fields inline plus key and revision
type envelope[T any] struct {
	ID  string             `bson:"_id"`
	Rev primitive.ObjectID `bson:"_rev"`
	Doc T                  `bson:",inline"`
}

type changeEvent[T any] struct {
	OperationType string       `bson:"operationType"`
	FullDocument  *envelope[T] `bson:"fullDocument"`
}

// DocumentRepository implements repositories.Collection on a MongoDB collection,
// one document per key
type DocumentRepository[T any] struct {
	collection  *mongo.Collection
	maxAttempts int
}

// NewDocumentRepository creates a DocumentRepository over the named collection
func NewDocumentRepository[T any](db *mongo.Database, name string, maxAttempts int) *DocumentRepository[T] {
	if maxAttempts <= 0 {
		maxAttempts = repositories.DefaultMaxAttempts
	}
	return &DocumentRepository[T]{
		collection:  db.Collection(name),
		maxAttempts: maxAttempts,
	}
}

// NewRepositories creates the four raffle collections on db
func NewRepositories(db *mongo.Database, maxAttempts int) repositories.Repositories {
	return repositories.Repositories{
		Teams:      NewDocumentRepository[models.Team](db, repositories.CollectionTeams, maxAttempts),
		Selections: NewDocumentRepository[models.Selection](db, repositories.CollectionSelection, maxAttempts),
		Prizes:     NewDocumentRepository[models.Prizes](db, repositories.CollectionPrizes, maxAttempts),
		Results:    NewDocumentRepository[models.Results](db, repositories.CollectionResults, maxAttempts),
	}
}

// Read finds a record by key
func (r *DocumentRepository[T]) Read(ctx context.Context, key string) (*T, error) {
	env, err := r.find(ctx, key)
	if err != nil {
		return nil, err
	}
	return &env.Doc, nil
}

// Write upserts a record under a fresh revision
func (r *DocumentRepository[T]) Write(ctx context.Context, key string, doc *T) error {
	fields, err := toFields(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", r.collection.Name(), key, err)
	}
	fields = append(fields, bson.E{Key: revField, Value: primitive.NewObjectID()})
	update := bson.M{"$set": fields}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", r.collection.Name(), key, err)
	}
	return nil
}

// Create inserts a record, failing if the key exists
func (r *DocumentRepository[T]) Create(ctx context.Context, key string, doc *T) error {
	_, err := r.collection.InsertOne(ctx, envelope[T]{ID: key, Rev: primitive.NewObjectID(), Doc: *doc})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create %s/%s: %w", r.collection.Name(), key, err)
	}
	return nil
}

// Transact runs fn against the latest revision and replaces the document only if the
// revision still matches. A zero revision matches documents that were seeded without a
// revision field.
func (r *DocumentRepository[T]) Transact(ctx context.Context, key string, fn func(doc *T) error) (*T, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		current, err := r.find(ctx, key)
		if err != nil {
			return nil, err
		}

		doc := current.Doc
		if err := fn(&doc); err != nil {
			return nil, err
		}

		next := envelope[T]{ID: key, Rev: primitive.NewObjectID(), Doc: doc}
		res, err := r.collection.ReplaceOne(ctx, revisionFilter(key, current.Rev), next)
		if err != nil {
			return nil, fmt.Errorf("failed to commit %s/%s: %w", r.collection.Name(), key, err)
		}
		if res.MatchedCount == 1 {
			return &doc, nil
		}
		slog.Debug("Transaction conflict, retrying", "collection", r.collection.Name(), "key", key, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: %s/%s after %d attempts: %w",
		repositories.ErrTransactionAborted, r.collection.Name(), key, r.maxAttempts, repositories.ErrConflict)
}

// Delete removes a record by key
func (r *DocumentRepository[T]) Delete(ctx context.Context, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", r.collection.Name(), key, err)
	}
	return nil
}

// Subscribe opens a change stream on the record. Change streams need a replica set.
func (r *DocumentRepository[T]) Subscribe(ctx context.Context, key string, onChange func(repositories.Change[T])) (repositories.Unsubscribe, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: key}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.collection.Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s/%s: %w", r.collection.Name(), key, err)
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			var event changeEvent[T]
			if err := stream.Decode(&event); err != nil {
				slog.Error("Failed to decode change event", "collection", r.collection.Name(), "key", key, "error", err)
				continue
			}
			if change, ok := toChange(key, event); ok {
				onChange(change)
			}
		}
		if watchCtx.Err() != nil {
			return
		}
		err := stream.Err()
		slog.Error("Change stream stopped", "collection", r.collection.Name(), "key", key, "error", err)
		onChange(repositories.StoppedChange[T](key, err))
	}()

	return func() { cancel() }, nil
}

func (r *DocumentRepository[T]) find(ctx context.Context, key string) (*envelope[T], error) {
	var env envelope[T]
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&env)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", r.collection.Name(), key, err)
	}
	return &env, nil
}

func revisionFilter(key string, rev primitive.ObjectID) bson.M {
	if rev.IsZero() {
		return bson.M{"_id": key, revField: bson.M{"$exists": false}}
	}
	return bson.M{"_id": key, revField: rev}
}

func toFields(doc any) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func toChange[T any](key string, event changeEvent[T]) (repositories.Change[T], bool) {
	switch event.OperationType {
	case "insert":
		if event.FullDocument == nil {
			return repositories.Change[T]{}, false
		}
		return repositories.Change[T]{Type: repositories.ChangeCreated, Key: key, Doc: &event.FullDocument.Doc}, true
	case "update", "replace":
		if event.FullDocument == nil {
			return repositories.Change[T]{}, false
		}
		return repositories.Change[T]{Type: repositories.ChangeModified, Key: key, Doc: &event.FullDocument.Doc}, true
	case "delete":
		return repositories.Change[T]{Type: repositories.ChangeDeleted, Key: key}, true
	default:
		return repositories.Change[T]{}, false
	}
}
