package database

import (
	"context"
	"log"
	"time"

	"groundbook/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient is the global MongoDB client instance.
var MongoClient *mongo.Client

// InitDB initializes the MongoDB connection.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.AppConfig.DatabaseURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}
	MongoClient = client
	log.Println("Connected to MongoDB successfully!")
}

// Mongo returns the application database.
func Mongo() *mongo.Database {
	if MongoClient == nil {
		InitDB()
	}
	return MongoClient.Database(config.AppConfig.DatabaseName)
}

// CloseDB disconnects whichever stores were opened.
func CloseDB(ctx context.Context) {
	if MongoClient != nil {
		if err := MongoClient.Disconnect(ctx); err != nil {
			log.Printf("failed to disconnect MongoDB: %v", err)
		}
	}
	if Postgres != nil {
		if err := Postgres.Close(); err != nil {
			log.Printf("failed to close Postgres: %v", err)
		}
	}
}
