package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/matzehuels/pkgindex/pkg/packages"
)

// Mongo defaults when the connection string names no database.
const (
	DefaultMongoDatabase   = "pkgindex"
	DefaultMongoCollection = "packages"
)

// Mongo stores each package as one document whose _id is the package key.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoDoc is the stored document shape.
type mongoDoc struct {
	ID               string `bson:"_id"`
	packages.Package `bson:",inline"`
}

// OpenMongo connects to the deployment at rawURL. The database is taken
// from the URL path, defaulting to DefaultMongoDatabase.
func OpenMongo(ctx context.Context, rawURL string) (*Mongo, error) {
	cs, err := connstring.ParseAndValidate(rawURL)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	db := cs.Database
	if db == "" {
		db = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(rawURL))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	m := NewMongo(client, client.Database(db).Collection(DefaultMongoCollection))
	if err := m.Ping(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// NewMongo wraps a connected client and the collection to use.
func NewMongo(client *mongo.Client, coll *mongo.Collection) *Mongo {
	return &Mongo{client: client, coll: coll}
}

// Upsert implements Store.
func (m *Mongo) Upsert(ctx context.Context, p packages.Package) error {
	if err := validate(p); err != nil {
		return err
	}
	key := p.Key()
	_, err := m.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDoc{ID: key, Package: p},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: upsert %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (m *Mongo) Get(ctx context.Context, source packages.Source, identifier string) (packages.Package, error) {
	key := packages.Key(source, identifier)
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return packages.Package{}, ErrNotFound
	}
	if err != nil {
		return packages.Package{}, fmt.Errorf("mongo: get %s: %w", key, err)
	}
	return normalize(doc.Package), nil
}

// List implements Store. Filtering, ordering and limiting run server-side.
func (m *Mongo) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	filter := mongoFilter(opts)

	total, err := m.coll.CountDocuments(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("mongo: count: %w", err)
	}

	find := options.Find().
		SetSort(bson.D{{Key: "popularity", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opts.limit()))
	cur, err := m.coll.Find(ctx, filter, find)
	if err != nil {
		return ListResult{}, fmt.Errorf("mongo: list: %w", err)
	}
	defer cur.Close(ctx)

	items := make([]packages.Package, 0, opts.limit())
	for cur.Next(ctx) {
		var doc mongoDoc
		if err := cur.Decode(&doc); err != nil {
			return ListResult{}, fmt.Errorf("mongo: decode: %w", err)
		}
		items = append(items, normalize(doc.Package))
	}
	if err := cur.Err(); err != nil {
		return ListResult{}, fmt.Errorf("mongo: list: %w", err)
	}
	return ListResult{Items: items, Total: int(total)}, nil
}

// mongoFilter translates opts into a query document.
func mongoFilter(opts ListOptions) bson.M {
	filter := bson.M{}
	if opts.Source != "" {
		filter["source"] = string(opts.Source)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"identifier": re},
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}
	}
	return filter
}

// normalize restores the never-nil tags invariant after decoding.
func normalize(p packages.Package) packages.Package {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// Ping implements Store.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

// Close implements Store.
func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

var _ Store = (*Mongo)(nil)
