// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps bundles database clients and backend dependencies for this app.
//
// WAFFLE passes this struct to EnsureSchema, Startup, BuildHandler, and
// Shutdown, so anything those hooks need should live here.
type DBDeps struct {
	// MongoClient is the connected MongoDB client, kept for health checks
	// and clean disconnect at shutdown.
	MongoClient *mongo.Client

	// MongoDatabase is the database handle the stores operate on.
	MongoDatabase *mongo.Database

	// BlobStore holds the image bytes (local disk or S3/CloudFront).
	// Records in MongoDB reference blobs by the image id.
	BlobStore storage.Store
}
