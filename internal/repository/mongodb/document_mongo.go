package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentMongo stores document records in a MongoDB collection.
// IDs are ObjectIDs generated on insert and exposed as 24-char hex strings.
type DocumentMongo struct {
	coll *mongo.Collection
}

// NewDocumentMongo wraps an existing collection handle.
func NewDocumentMongo(coll *mongo.Collection) *DocumentMongo {
	return &DocumentMongo{coll: coll}
}

var _ repository.DocumentRepository = (*DocumentMongo)(nil)

type documentItem struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OwnerName       string             `bson:"owner_name"`
	OwnerEmail      string             `bson:"owner_email"`
	DisplayFileName string             `bson:"display_file_name"`
	BlobKey         string             `bson:"blob_key"`
	ContentType     string             `bson:"content_type"`
	Size            int64              `bson:"size"`
	CreatedAt       time.Time          `bson:"created_at"`
}

func (it documentItem) toModel() model.DocumentRecord {
	return model.DocumentRecord{
		ID:              it.ID.Hex(),
		OwnerName:       it.OwnerName,
		OwnerEmail:      it.OwnerEmail,
		DisplayFileName: it.DisplayFileName,
		BlobKey:         it.BlobKey,
		ContentType:     it.ContentType,
		Size:            it.Size,
		CreatedAt:       it.CreatedAt.UTC(),
	}
}

// EnsureIndexes creates the blob_key uniqueness and created_at ordering indexes.
func (r *DocumentMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "blob_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_blob_key"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Insert adds the record and returns it with the generated ObjectID.
func (r *DocumentMongo) Insert(ctx context.Context, rec *model.DocumentRecord) (*model.DocumentRecord, error) {
	item := documentItem{
		ID:              primitive.NewObjectID(),
		OwnerName:       rec.OwnerName,
		OwnerEmail:      rec.OwnerEmail,
		DisplayFileName: rec.DisplayFileName,
		BlobKey:         rec.BlobKey,
		ContentType:     rec.ContentType,
		Size:            rec.Size,
		CreatedAt:       rec.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, item); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	out := item.toModel()
	return &out, nil
}

// FindByID looks a record up by its hex ObjectID. Malformed ids cannot exist.
func (r *DocumentMongo) FindByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByBlobKey looks a record up by the object key it references.
func (r *DocumentMongo) FindByBlobKey(ctx context.Context, key string) (*model.DocumentRecord, error) {
	return r.findOne(ctx, bson.M{"blob_key": key})
}

func (r *DocumentMongo) findOne(ctx context.Context, filter bson.M) (*model.DocumentRecord, error) {
	var item documentItem
	if err := r.coll.FindOne(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	out := item.toModel()
	return &out, nil
}

// FindAll iterates the cursor newest first.
func (r *DocumentMongo) FindAll(ctx context.Context) ([]model.DocumentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]model.DocumentRecord, 0)
	for cur.Next(ctx) {
		var item documentItem
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
