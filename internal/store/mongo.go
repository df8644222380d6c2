package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourusername/bgtutor/pkg/match"
)

const gamesCollection = "games"

// gameDoc is the stored form of a game. The record itself is kept as JSON
// so it round-trips through the same encoding the API serves.
type gameDoc struct {
	ID       string    `bson:"_id"`
	Number   int       `bson:"number"`
	Winner   string    `bson:"winner,omitempty"`
	Points   int       `bson:"points,omitempty"`
	Archived time.Time `bson:"archived"`
	Record   string    `bson:"record"`
}

// Mongo keeps archived games in MongoDB.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and uses the named database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ArchiveGame stores rec, replacing an earlier copy of the same game.
func (m *Mongo) ArchiveGame(ctx context.Context, rec *match.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	doc := gameDoc{
		ID:       rec.ID,
		Number:   rec.Number,
		Archived: time.Now(),
		Record:   string(data),
	}
	if rec.Result != nil {
		doc.Winner = rec.Result.Winner.String()
		doc.Points = rec.Result.Points
	}
	_, err = m.db.Collection(gamesCollection).ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("archiving game %s: %w", rec.ID, err)
	}
	return nil
}

func (m *Mongo) Game(ctx context.Context, id string) (*match.GameRecord, error) {
	var doc gameDoc
	err := m.db.Collection(gamesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading game %s: %w", id, err)
	}
	var rec match.GameRecord
	if err := json.Unmarshal([]byte(doc.Record), &rec); err != nil {
		return nil, fmt.Errorf("decoding game %s: %w", id, err)
	}
	return &rec, nil
}
