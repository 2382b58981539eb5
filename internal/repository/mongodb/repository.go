package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

// MongoDBRepository stores businesses, inventory movements, expenses and metrics in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// EnsureIndexes creates the indexes the metrics queries rely on, including the
// unique key of the metrics collection.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		metricsCollection: {{
			Keys:    metricIndexKeys(),
			Options: options.Index().SetUnique(true).SetName("uniq_metric_key"),
		}},
		transactionsCollection: {{
			Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "createdAt", Value: 1}},
		}},
		expensesCollection: {{
			Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "createdAt", Value: 1}},
		}},
		warehouseItemsCollection: {{
			Keys: bson.D{{Key: "businessId", Value: 1}},
		}},
	}

	for coll, specs := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// ListBusinesses returns every business.
func (r *MongoDBRepository) ListBusinesses(ctx context.Context) ([]models.Business, error) {
	cursor, err := r.db.Collection(businessesCollection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, dbError(err, "list businesses")
	}

	var docs []businessDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError(err, "decode businesses")
	}

	out := make([]models.Business, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// GetBusiness loads one business, failing with NOT_FOUND when it does not exist.
func (r *MongoDBRepository) GetBusiness(ctx context.Context, id string) (models.Business, error) {
	var doc businessDocument
	err := r.db.Collection(businessesCollection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Business{}, apperror.New(apperror.CodeNotFound, fmt.Sprintf("business %s not found", id))
	}
	if err != nil {
		return models.Business{}, dbError(err, "get business")
	}
	return doc.toModel(), nil
}

// TransactionsInInterval returns the business transactions created within [from, to]
// joined with their product. A dangling product reference leaves Product nil.
func (r *MongoDBRepository) TransactionsInInterval(ctx context.Context, businessID string, from, to time.Time) ([]models.PricedTransaction, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: intervalFilter(businessID, from, to)}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		productLookup(),
	}

	cursor, err := r.db.Collection(transactionsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, dbError(err, "aggregate transactions")
	}

	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError(err, "decode transactions")
	}

	out := make([]models.PricedTransaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.toModel()
		if err != nil {
			return nil, dbError(err, "decode transaction")
		}
		out = append(out, tx)
	}
	return out, nil
}

// ExpensesInInterval returns the business expenses created within [from, to].
func (r *MongoDBRepository) ExpensesInInterval(ctx context.Context, businessID string, from, to time.Time) ([]models.Expense, error) {
	cursor, err := r.db.Collection(expensesCollection).Find(ctx, intervalFilter(businessID, from, to))
	if err != nil {
		return nil, dbError(err, "find expenses")
	}

	var docs []expenseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError(err, "decode expenses")
	}

	out := make([]models.Expense, 0, len(docs))
	for _, d := range docs {
		e, err := d.toModel()
		if err != nil {
			return nil, dbError(err, "decode expense")
		}
		out = append(out, e)
	}
	return out, nil
}

// WarehouseItems returns the current stock snapshot of every warehouse of the business.
func (r *MongoDBRepository) WarehouseItems(ctx context.Context, businessID string) ([]models.WarehouseItem, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "businessId", Value: businessID}}}},
		productLookup(),
	}

	cursor, err := r.db.Collection(warehouseItemsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, dbError(err, "aggregate warehouse items")
	}

	var docs []warehouseItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError(err, "decode warehouse items")
	}

	out := make([]models.WarehouseItem, 0, len(docs))
	for _, d := range docs {
		item, err := d.toModel()
		if err != nil {
			return nil, dbError(err, "decode warehouse item")
		}
		out = append(out, item)
	}
	return out, nil
}

// GetMetric returns the metric stored under the key, or nil when absent.
func (r *MongoDBRepository) GetMetric(ctx context.Context, businessID, name, periodType string, period time.Time) (*models.Metric, error) {
	var doc metricDocument
	err := r.db.Collection(metricsCollection).FindOne(ctx, metricFilter(businessID, name, periodType, period)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "get metric")
	}

	m, err := doc.toModel()
	if err != nil {
		return nil, dbError(err, "decode metric")
	}
	return &m, nil
}

// UpsertMetric inserts the metric or replaces the row already stored under its key.
func (r *MongoDBRepository) UpsertMetric(ctx context.Context, metric models.Metric) (models.Metric, error) {
	doc := newMetricDocument(metric)
	filter := metricFilter(doc.BusinessID, doc.Name, doc.PeriodType, doc.Period)

	if _, err := r.db.Collection(metricsCollection).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return models.Metric{}, dbError(err, "upsert metric")
	}
	return metric, nil
}

// ListMetrics returns the metrics of a business whose period lies within [from, to],
// ordered by period then name.
func (r *MongoDBRepository) ListMetrics(ctx context.Context, businessID, periodType string, from, to time.Time) ([]models.Metric, error) {
	filter := bson.D{
		{Key: "businessId", Value: businessID},
		{Key: "periodType", Value: periodType},
		{Key: "period", Value: bson.D{{Key: "$gte", Value: from.UTC()}, {Key: "$lte", Value: to.UTC()}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "period", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := r.db.Collection(metricsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, dbError(err, "list metrics")
	}

	var docs []metricDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError(err, "decode metrics")
	}

	out := make([]models.Metric, 0, len(docs))
	for _, d := range docs {
		m, err := d.toModel()
		if err != nil {
			return nil, dbError(err, "decode metric")
		}
		out = append(out, m)
	}
	return out, nil
}

// Ping checks connectivity for health probes.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func intervalFilter(businessID string, from, to time.Time) bson.D {
	return bson.D{
		{Key: "businessId", Value: businessID},
		{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: from.UTC()}, {Key: "$lte", Value: to.UTC()}}},
	}
}

func productLookup() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: productsCollection},
		{Key: "localField", Value: "productId"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "product"},
	}}}
}

func metricIndexKeys() bson.D {
	return bson.D{{Key: "businessId", Value: 1}, {Key: "name", Value: 1}, {Key: "periodType", Value: 1}, {Key: "period", Value: 1}}
}

// metricFilter matches the unique (businessId, name, periodType, period) key.
func metricFilter(businessID, name, periodType string, period time.Time) bson.D {
	return bson.D{
		{Key: "businessId", Value: businessID},
		{Key: "name", Value: name},
		{Key: "periodType", Value: periodType},
		{Key: "period", Value: period.UTC()},
	}
}

func dbError(err error, op string) error {
	return apperror.Wrap(apperror.CodeDatabaseError, err, op)
}
