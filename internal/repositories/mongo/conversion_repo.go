package mongo

import (
	"context"

	"github.com/yoockh/texttalk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ConversionsCollection = "tts_conversions"

type ConversionRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error)
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

type conversionRepo struct {
	col *mongo.Collection
}

func NewConversionRepo(db *mongo.Database) ConversionRepository {
	return &conversionRepo{col: db.Collection(ConversionsCollection)}
}

func (r *conversionRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"user_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Conversion{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversionRepo) DeleteOwned(ctx context.Context, ownerID, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	return err
}
