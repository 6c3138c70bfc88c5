package docstore

import (
	"context"
	"fmt"

	"menu-companion/config"
	"menu-companion/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoCategories = "menu"
	mongoMeals      = "meals"
)

// Mongo stores categories in "menu" and meals in "meals", linked by category_id.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoDoc struct {
	ID              string `bson:"_id"`
	CategoryID      string `bson:"category_id,omitempty"`
	models.Document `bson:",inline"`
}

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Mongo{client: client, db: client.Database(cfg.Database)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Categories(ctx context.Context) ([]models.MenuItem, error) {
	return m.find(ctx, mongoCategories, bson.D{}, "")
}

func (m *Mongo) Meals(ctx context.Context, categoryID string) ([]models.MenuItem, error) {
	return m.find(ctx, mongoMeals, bson.D{{Key: "category_id", Value: categoryID}}, categoryID)
}

func (m *Mongo) PutCategory(ctx context.Context, id string, doc models.Document) error {
	_, err := m.db.Collection(mongoCategories).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		mongoDoc{ID: id, Document: doc},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put category %s: %w", id, err)
	}
	return nil
}

func (m *Mongo) AddMeal(ctx context.Context, categoryID, id string, doc models.Document) error {
	_, err := m.db.Collection(mongoMeals).InsertOne(ctx, mongoDoc{ID: id, CategoryID: categoryID, Document: doc})
	if err != nil {
		return fmt.Errorf("add meal %s: %w", id, err)
	}
	return nil
}

func (m *Mongo) find(ctx context.Context, coll string, filter bson.D, categoryID string) ([]models.MenuItem, error) {
	cur, err := m.db.Collection(coll).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll, err)
	}
	items := make([]models.MenuItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.Document.Item(d.ID, categoryID))
	}
	return items, nil
}
