package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBListingRepository implements ListingRepository using MongoDB.
type MongoDBListingRepository struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoDBListingRepository creates a new MongoDB listing repository.
func NewMongoDBListingRepository(uri, database, collection string, log logger.Logger) (*MongoDBListingRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	coll := db.Collection(collection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sale_status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn("failed to create mongodb indexes", "error", err)
	}

	log.Info("mongodb catalog connected", "database", database, "collection", collection)
	return &MongoDBListingRepository{
		client:     client,
		db:         db,
		collection: coll,
	}, nil
}

// Create inserts a new listing.
func (r *MongoDBListingRepository) Create(ctx context.Context, l *model.Listing) error {
	doc := *l
	normalizeCollections(&doc)
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// Get retrieves a listing by ID.
func (r *MongoDBListingRepository) Get(ctx context.Context, id string) (*model.Listing, error) {
	var l model.Listing
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	normalizeCollections(&l)
	return &l, nil
}

// Update replaces a stored listing.
func (r *MongoDBListingRepository) Update(ctx context.Context, l *model.Listing) (bool, error) {
	doc := *l
	normalizeCollections(&doc)
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": l.ID}, doc)
	if err != nil {
		return false, fmt.Errorf("failed to update listing: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// Delete removes listings by ID.
func (r *MongoDBListingRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %w", err)
	}
	return res.DeletedCount, nil
}

// List returns a page of listings matching the filter.
func (r *MongoDBListingRepository) List(ctx context.Context, filter model.ListingFilter) ([]model.Listing, int64, error) {
	query := bson.M{}
	if filter.Status != model.SaleStatusUnset {
		query["sale_status"] = string(filter.Status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"desc": pattern}}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []model.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode listings: %w", err)
	}

	// Ensure not nil slice for JSON
	if listings == nil {
		listings = []model.Listing{}
	}
	for i := range listings {
		normalizeCollections(&listings[i])
	}
	return listings, total, nil
}

// GetStats returns statistics about the listing collection.
func (r *MongoDBListingRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["status"] = "connected"

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$sale_status"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return stats, err
	}

	var total int64
	byStatus := make(map[string]int64)
	for _, g := range groups {
		status := g.Status
		if status == "" {
			status = "unset"
		}
		byStatus[status] = g.Count
		total += g.Count
	}
	stats["total_listings"] = total
	stats["by_status"] = byStatus

	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	var last model.Listing
	if err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&last); err == nil {
		stats["last_update"] = last.UpdatedAt
	}

	result := r.db.RunCommand(ctx, bson.D{{Key: "collStats", Value: r.collection.Name()}})
	var collStats bson.M
	if err := result.Decode(&collStats); err == nil {
		if size, ok := collStats["size"].(int64); ok {
			stats["db_size_bytes"] = size
		} else if size, ok := collStats["size"].(int32); ok {
			stats["db_size_bytes"] = int64(size)
		}
	}

	return stats, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBListingRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func normalizeCollections(l *model.Listing) {
	if l.Features == nil {
		l.Features = []string{}
	}
	if l.Images == nil {
		l.Images = []model.ListingImage{}
	}
}

// Ensure MongoDBListingRepository implements ListingRepository
var _ ListingRepository = (*MongoDBListingRepository)(nil)
