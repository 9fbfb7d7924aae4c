// Package mongodb guarda los mismos agregados que postgres pero como
// documentos, una colección por módulo.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	membersCollection      = "members"
	grantsCollection       = "access_grants"
	recordsCollection      = "records"
	appointmentsCollection = "appointments"
	medicinesCollection    = "medicines"
)

// Connect abre el cliente, hace ping y devuelve la base.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client.Database(dbName), nil
}

// EnsureIndexes crea los índices de consulta; es idempotente.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	idx := map[string][]bson.D{
		membersCollection:      {{{Key: "owner_user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		grantsCollection:       {{{Key: "member_id", Value: 1}}, {{Key: "grantee_user_id", Value: 1}, {Key: "status", Value: 1}}},
		recordsCollection:      {{{Key: "member_id", Value: 1}, {Key: "date", Value: -1}}},
		appointmentsCollection: {{{Key: "member_id", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		medicinesCollection:    {{{Key: "owner_user_id", Value: 1}}, {{Key: "relation", Value: 1}}},
	}
	for coll, keys := range idx {
		models := make([]mongo.IndexModel, 0, len(keys))
		for _, k := range keys {
			models = append(models, mongo.IndexModel{Keys: k})
		}
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", coll, err)
		}
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
