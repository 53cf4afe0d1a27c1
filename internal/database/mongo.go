package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var DB *mongo.Database

// Connect opens the client, verifies it with a ping and selects dbName as the
// package database used by the repositories.
func Connect(uri, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	DB = client.Database(dbName)
	log.Printf("[Mongo] connected to database %q", dbName)
	return nil
}

func Disconnect(ctx context.Context) error {
	if DB == nil {
		return nil
	}
	if err := DB.Client().Disconnect(ctx); err != nil {
		return err
	}
	log.Println("[Mongo] connection closed")
	return nil
}

func GetCollection(name string) *mongo.Collection {
	return DB.Collection(name)
}
