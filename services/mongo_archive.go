package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stock_pattern_dashboard/models"
)

// MongoDB database and collection names
const (
	MongoDBName               = "stock_pattern_dashboard"
	MongoDetectionsCollection = "pattern_detections"
)

// MongoArchive mirrors pattern detection results to MongoDB Atlas for
// long-term history beyond the local retention window
type MongoArchive struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	uriSet      bool   // Whether MONGODB_URI is configured
	lastError   string // Last connection error message
}

// MongoDetection represents a detection result document in MongoDB
type MongoDetection struct {
	Symbol      string    `bson:"symbol"`
	PatternType string    `bson:"pattern_type"`
	Detected    bool      `bson:"detected"`
	CheckedAt   time.Time `bson:"checked_at"`
	ArchivedAt  time.Time `bson:"archived_at"`
}

// Global archive instance
var GlobalMongoArchive *MongoArchive

// InitMongoArchive initializes the MongoDB archive. The archive is
// optional: without MONGODB_URI detections stay local only.
func InitMongoArchive() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Println("MONGODB_URI not set, MongoDB archive disabled")
		GlobalMongoArchive = &MongoArchive{
			uriSet:    false,
			lastError: "MONGODB_URI environment variable not set",
		}
		return nil
	}

	GlobalMongoArchive = &MongoArchive{
		uriSet: true,
	}

	return GlobalMongoArchive.Connect()
}

// Connect establishes connection to MongoDB Atlas
func (m *MongoArchive) Connect() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		m.lastError = "MONGODB_URI environment variable not set"
		return fmt.Errorf("%s", m.lastError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.lastError = fmt.Sprintf("Failed to connect: %v", err)
		log.Printf("Failed to connect to MongoDB Atlas: %v", err)
		return err
	}

	// Verify connection with ping
	if err := client.Ping(ctx, nil); err != nil {
		m.lastError = fmt.Sprintf("Failed to ping: %v", err)
		log.Printf("Failed to ping MongoDB Atlas: %v", err)
		client.Disconnect(ctx)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(MongoDBName)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	m.createIndexes()

	log.Println("MongoDB Atlas connected successfully")
	return nil
}

// IsConfigured returns whether MongoDB is configured and connected
func (m *MongoArchive) IsConfigured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// IsURISet returns whether MONGODB_URI environment variable is set
func (m *MongoArchive) IsURISet() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uriSet
}

// GetLastError returns the last connection error
func (m *MongoArchive) GetLastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// GetConnectionStatus returns detailed connection status
func (m *MongoArchive) GetConnectionStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := map[string]interface{}{
		"uri_set":   m.uriSet,
		"connected": m.isConnected,
	}

	if m.lastError != "" {
		status["error"] = m.lastError
	}

	return status
}

// Close closes the MongoDB connection
func (m *MongoArchive) Close() error {
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.client.Disconnect(ctx)
	}
	return nil
}

// createIndexes creates necessary indexes for collections
func (m *MongoArchive) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := m.database.Collection(MongoDetectionsCollection)
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "checked_at", Value: -1}},
	})

	log.Println("MongoDB indexes created")
}

// ArchiveDetection saves a detection result to MongoDB
func (m *MongoArchive) ArchiveDetection(detection *models.PatternDetection) error {
	if !m.IsConfigured() {
		return fmt.Errorf("MongoDB not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := MongoDetection{
		Symbol:      detection.Symbol,
		PatternType: detection.PatternType,
		Detected:    detection.Detected,
		CheckedAt:   detection.CheckedAt,
		ArchivedAt:  time.Now(),
	}

	collection := m.database.Collection(MongoDetectionsCollection)
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to archive detection for %s to MongoDB: %w", detection.Symbol, err)
	}

	return nil
}

// LoadDetectionHistory loads archived detections for a symbol, newest first
func (m *MongoArchive) LoadDetectionHistory(symbol string, limit int64) ([]MongoDetection, error) {
	if !m.IsConfigured() {
		return nil, fmt.Errorf("MongoDB not configured")
	}

	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := m.database.Collection(MongoDetectionsCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "checked_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{"symbol": symbol}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection history from MongoDB: %w", err)
	}
	defer cursor.Close(ctx)

	var results []MongoDetection
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode detection history: %w", err)
	}

	return results, nil
}

// GetDetectionCount returns the count of archived detection documents
func (m *MongoArchive) GetDetectionCount() (int64, error) {
	if !m.IsConfigured() {
		return 0, fmt.Errorf("MongoDB not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := m.database.Collection(MongoDetectionsCollection)
	return collection.CountDocuments(ctx, bson.M{})
}
