package db

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maternar/models"
)

// activityDoc is the document shape of an archived activity log entry.
type activityDoc struct {
	ID          string                 `bson:"_id"`
	UserID      uint                   `bson:"userId"`
	Type        string                 `bson:"type"`
	Description string                 `bson:"description"`
	Metadata    map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt   time.Time              `bson:"createdAt"`
}

// MongoActivityRepository keeps the append-only activity log in a MongoDB
// collection instead of the relational store.
type MongoActivityRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongoActivity connects to MongoDB and returns the activity archive.
func ConnectMongoActivity(ctx context.Context, uri, collection string) (*MongoActivityRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	dbName := extractDBName(uri)
	slog.Info("activity archive connected", "database", dbName, "collection", collection)

	repo := &MongoActivityRepository{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
	}
	_, err = repo.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create activity index")
	}
	return repo, nil
}

// extractDBName parses the database name from the URI, defaulting to "maternar".
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "maternar"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:]
	}
	return "maternar"
}

func (m *MongoActivityRepository) AppendActivity(ctx context.Context, a *models.ActivityLog) error {
	doc := activityDoc{
		ID:          a.ID,
		UserID:      a.UserID,
		Type:        a.Type,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
		a.CreatedAt = doc.CreatedAt
	}
	if len(a.Metadata) > 0 {
		if err := json.Unmarshal(a.Metadata, &doc.Metadata); err != nil {
			return errors.Wrap(err, "decode activity metadata")
		}
	}
	_, err := m.collection.InsertOne(ctx, doc)
	return errors.Wrap(err, "insert activity")
}

func (m *MongoActivityRepository) ListActivities(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := m.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find activities")
	}
	defer cursor.Close(ctx)

	var docs []activityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode activities")
	}

	out := make([]models.ActivityLog, 0, len(docs))
	for _, d := range docs {
		entry := models.ActivityLog{
			ID:          d.ID,
			UserID:      d.UserID,
			Type:        d.Type,
			Description: d.Description,
			CreatedAt:   d.CreatedAt,
		}
		if d.Metadata != nil {
			raw, err := json.Marshal(d.Metadata)
			if err != nil {
				return nil, errors.Wrap(err, "encode activity metadata")
			}
			entry.Metadata = raw
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *MongoActivityRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoActivityRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
