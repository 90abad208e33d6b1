package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/neoglyph/rippley/memory"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type memoryArchive struct{ col *mongo.Collection }

type memorySnapshot struct {
	AgentID uuid.UUID      `bson:"agentId"`
	Entries []memory.Entry `bson:"entries"`
}

// MemoryArchive returns the MongoDB implementation of memory.Archive.
func MemoryArchive(ctx context.Context, col *mongo.Collection) (memory.Archive, error) {
	a := &memoryArchive{col: col}
	if err := a.createIndexes(ctx); err != nil {
		return a, fmt.Errorf("create indexes: %w", err)
	}
	return a, nil
}

func (a *memoryArchive) Save(ctx context.Context, agentID uuid.UUID, entries []memory.Entry) error {
	_, err := a.col.ReplaceOne(ctx, bson.D{
		{Key: "agentId", Value: agentID},
	}, memorySnapshot{
		AgentID: agentID,
		Entries: entries,
	}, options.Replace().SetUpsert(true))
	return err
}

func (a *memoryArchive) Load(ctx context.Context, agentID uuid.UUID) ([]memory.Entry, error) {
	res := a.col.FindOne(ctx, bson.D{{Key: "agentId", Value: agentID}})

	var snapshot memorySnapshot
	if err := res.Decode(&snapshot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	return snapshot.Entries, nil
}

func (a *memoryArchive) createIndexes(ctx context.Context) error {
	_, err := a.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "agentId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}
