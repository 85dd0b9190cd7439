// Package tablestore хранит записи заказов в коллекциях MongoDB.
package tablestore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iurnickita/ecosystem/internal/model"
)

var ErrNoCollection = errors.New("collection name is empty")

// DataStore - операции над коллекцией, нужные хранилищу.
type DataStore interface {
	UpdateOne(
		ctx context.Context,
		filter interface{},
		update interface{},
		opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// CollectionProvider выдает коллекцию по имени.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoProvider адаптирует *mongo.Database к CollectionProvider.
type MongoProvider struct {
	database *mongo.Database
}

func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{database: client.Database(database)}
}

func (p *MongoProvider) Collection(name string) DataStore {
	return p.database.Collection(name)
}

// Connect подключается к MongoDB и проверяет соединение.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// TableStore - табличное хранилище заказов поверх MongoDB.
type TableStore struct {
	provider CollectionProvider
}

func NewTableStore(provider CollectionProvider) *TableStore {
	return &TableStore{provider: provider}
}

// CreateOrUpdateRecord записывает заказ в коллекцию, ключ - order_id.
func (s *TableStore) CreateOrUpdateRecord(ctx context.Context, collection string, record model.SyncRecord) error {
	if collection == "" {
		return ErrNoCollection
	}

	filter := bson.M{"order_id": record.OrderID}
	update := bson.M{"$set": record}
	_, err := s.provider.Collection(collection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert order %d into %s: %w", record.OrderID, collection, err)
	}
	return nil
}
