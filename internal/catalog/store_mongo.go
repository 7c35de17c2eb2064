package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

type productDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Nombre        string             `bson:"nombre"`
	Precio        string             `bson:"precio"`
	Categoria     string             `bson:"categoria"`
	Imagen        string             `bson:"imagen"`
	Estado        string             `bson:"estado"`
	Descripcion   string             `bson:"descripcion"`
	ImagenesExtra []string           `bson:"imagenes_extra"`
}

func (d productDoc) product() Product {
	return normalize(Product{
		ID:            d.ID.Hex(),
		Nombre:        d.Nombre,
		Precio:        d.Precio,
		Categoria:     d.Categoria,
		Imagen:        d.Imagen,
		Estado:        d.Estado,
		Descripcion:   d.Descripcion,
		ImagenesExtra: d.ImagenesExtra,
	})
}

// MongoStore keeps one document per product. Ids are ObjectID hex strings;
// an id that is not valid hex can never match and reads as not found.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// ConnectMongo dials uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	var client *mongo.Client
	err := withTimeout(ctx, connectTimeout, func(ctx context.Context) error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return client, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.coll.Database().Client().Ping(ctx, nil)
	})
}

func (s *MongoStore) List(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, 16)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		cur, err := s.coll.Find(ctx, bson.D{})
		if err != nil {
			return err
		}
		var docs []productDoc
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			out = append(out, d.product())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Product, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, false, nil
	}

	var d productDoc
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return d.product(), true, nil
}

func (s *MongoStore) Create(ctx context.Context, p Product) (Product, error) {
	p = normalize(p)
	d := productDoc{
		ID:            primitive.NewObjectID(),
		Nombre:        p.Nombre,
		Precio:        p.Precio,
		Categoria:     p.Categoria,
		Imagen:        p.Imagen,
		Estado:        p.Estado,
		Descripcion:   p.Descripcion,
		ImagenesExtra: p.ImagenesExtra,
	}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.coll.InsertOne(ctx, d)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	return d.product(), nil
}

func (s *MongoStore) Update(ctx context.Context, id string, patch Patch) (Product, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, false, nil
	}

	if patch.Empty() {
		return s.Get(ctx, id)
	}
	set := patchSet(patch)

	var d productDoc
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		return s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&d)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return d.product(), true, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
		return err
	})
}

// patchSet lists only the supplied fields so omitted ones keep their value.
func patchSet(p Patch) bson.M {
	set := bson.M{}
	add := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	add("nombre", p.Nombre)
	add("precio", p.Precio)
	add("categoria", p.Categoria)
	add("imagen", p.Imagen)
	add("estado", p.Estado)
	add("descripcion", p.Descripcion)
	if p.ImagenesExtra != nil {
		set["imagenes_extra"] = append([]string{}, *p.ImagenesExtra...)
	}
	return set
}
