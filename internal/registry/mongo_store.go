package registry

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type subscriptionDocument struct {
	ConnectionID string    `bson:"connectionId"`
	Channel      string    `bson:"channel"`
	UserData     string    `bson:"userData,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// MongoStore keeps one document per row in a collection with a unique
// (connectionId, channel) index and a channel index.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

// EnsureIndexes creates the row key and lookup indexes.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "connectionId", Value: 1}, {Key: "channel", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("lookup-by-connection"),
		},
		{
			Keys:    bson.D{{Key: "channel", Value: 1}},
			Options: options.Index().SetName("lookup-by-channel"),
		},
	})
	return err
}

func rowFilter(connectionID, channel string) bson.D {
	return bson.D{{Key: "connectionId", Value: connectionID}, {Key: "channel", Value: channel}}
}

func (m *MongoStore) Put(ctx context.Context, sub Subscription) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "userData", Value: sub.UserData},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	_, err := m.collection.UpdateOne(ctx, rowFilter(sub.ConnectionID, sub.Channel), update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) Delete(ctx context.Context, connectionID, channel string) error {
	_, err := m.collection.DeleteOne(ctx, rowFilter(connectionID, channel))
	return err
}

func (m *MongoStore) ByConnection(ctx context.Context, connectionID string) ([]Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "channel", Value: 1}})
	return m.find(ctx, bson.D{{Key: "connectionId", Value: connectionID}}, opts)
}

func (m *MongoStore) ByChannel(ctx context.Context, channel string) ([]Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "connectionId", Value: 1}})
	return m.find(ctx, bson.D{{Key: "channel", Value: channel}}, opts)
}

func (m *MongoStore) DeleteConnection(ctx context.Context, connectionID string) error {
	_, err := m.collection.DeleteMany(ctx, bson.D{{Key: "connectionId", Value: connectionID}})
	return err
}

func (m *MongoStore) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]Subscription, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []subscriptionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	subs := make([]Subscription, 0, len(docs))
	for _, doc := range docs {
		subs = append(subs, Subscription{ConnectionID: doc.ConnectionID, Channel: doc.Channel, UserData: doc.UserData})
	}
	return subs, nil
}
