package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection    = "orders"
	donationsCollection = "donations"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// MongoRepository stores orders and donations in separate collections keyed
// by record id.
type MongoRepository struct {
	orders    *mongo.Collection
	donations *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		orders:    db.Collection(ordersCollection),
		donations: db.Collection(donationsCollection),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}
	for _, c := range m.collections() {
		if _, err := c.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", c.Name(), err)
		}
	}
	return nil
}

func (m *MongoRepository) Insert(ctx context.Context, rec *domain.Record) error {
	_, err := m.collectionFor(rec.Kind).InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (m *MongoRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	for _, c := range m.collections() {
		var rec domain.Record
		err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
		if err == nil {
			return &rec, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to get record: %w", err)
		}
	}
	return nil, ErrNotFound
}

func (m *MongoRepository) CompareAndSetStatus(ctx context.Context, id string, change StatusChange) (bool, error) {
	set := bson.M{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.ProcessorRef != "" {
		set["processor_ref"] = change.ProcessorRef
	}
	if change.To == domain.StatusCancelled {
		set["cancelled_at"] = change.At
	}

	// the status in the filter is the guard against concurrent writers
	filter := bson.M{"_id": id, "status": change.From}
	return m.updateOne(ctx, id, filter, bson.M{"$set": set})
}

func (m *MongoRepository) SetProcessorRef(ctx context.Context, id, ref string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": domain.StatusPending}
	update := bson.M{"$set": bson.M{"processor_ref": ref, "updated_at": at}}
	return m.updateOne(ctx, id, filter, update)
}

// updateOne applies update to whichever collection holds id. A record that
// exists but does not match filter reports false.
func (m *MongoRepository) updateOne(ctx context.Context, id string, filter, update bson.M) (bool, error) {
	for _, c := range m.collections() {
		res, err := c.UpdateOne(ctx, filter, update)
		if err != nil {
			return false, fmt.Errorf("failed to update record: %w", err)
		}
		if res.MatchedCount > 0 {
			return true, nil
		}
	}

	if _, err := m.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (m *MongoRepository) ListByBuyer(ctx context.Context, buyerID string, f Filter) ([]*domain.Record, error) {
	filter := bson.M{"buyer_id": buyerID}
	if f.RecurringOnly {
		filter["recurring"] = true
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	out := make([]*domain.Record, 0)
	for _, c := range m.collectionsFor(f.Kind) {
		recs, err := m.find(ctx, c, filter, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MongoRepository) ListPending(ctx context.Context, page PendingPage) ([]*domain.Record, error) {
	filter := bson.M{
		"status":     domain.StatusPending,
		"created_at": bson.M{"$lt": page.OlderThan},
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$gt": page.AfterCreatedAt}},
			bson.M{"created_at": page.AfterCreatedAt, "_id": bson.M{"$gt": page.AfterID}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}

	out := make([]*domain.Record, 0)
	for _, c := range m.collections() {
		recs, err := m.find(ctx, c, filter, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return pendingOrder(out[i], out[j])
	})
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *MongoRepository) find(ctx context.Context, c *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]*domain.Record, error) {
	cursor, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.Name(), err)
	}
	defer cursor.Close(ctx)

	var recs []*domain.Record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.Name(), err)
	}
	return recs, nil
}

func (m *MongoRepository) collectionFor(kind domain.Kind) *mongo.Collection {
	if kind == domain.KindDonation {
		return m.donations
	}
	return m.orders
}

func (m *MongoRepository) collectionsFor(kind domain.Kind) []*mongo.Collection {
	if kind == "" {
		return m.collections()
	}
	return []*mongo.Collection{m.collectionFor(kind)}
}

func (m *MongoRepository) collections() []*mongo.Collection {
	return []*mongo.Collection{m.orders, m.donations}
}
