package mongodb

import (
	"context"
	"errors"
	"time"

	"carehive/internal/domain/medicines"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type medicineDoc struct {
	ID          string     `bson:"_id"`
	OwnerUserID string     `bson:"owner_user_id"`
	Name        string     `bson:"name"`
	Relation    string     `bson:"relation"`
	Times       []string   `bson:"times"`
	Quantity    int        `bson:"quantity"`
	Taken       int        `bson:"taken"`
	Skipped     int        `bson:"skipped"`
	LastTakenAt *time.Time `bson:"last_taken_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func (d medicineDoc) toDomain() medicines.Medicine {
	return medicines.Medicine{
		ID:          d.ID,
		OwnerUserID: d.OwnerUserID,
		Name:        d.Name,
		Relation:    d.Relation,
		Times:       d.Times,
		Quantity:    d.Quantity,
		Taken:       d.Taken,
		Skipped:     d.Skipped,
		LastTakenAt: d.LastTakenAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type MedicinesRepo struct {
	coll *mongo.Collection
}

func NewMedicinesRepo(db *mongo.Database) *MedicinesRepo {
	return &MedicinesRepo{coll: db.Collection(medicinesCollection)}
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	_, err := r.coll.InsertOne(ctx, medicineDoc{
		ID:          m.ID,
		OwnerUserID: m.OwnerUserID,
		Name:        m.Name,
		Relation:    m.Relation,
		Times:       nonNil(m.Times),
		Quantity:    m.Quantity,
		Taken:       m.Taken,
		Skipped:     m.Skipped,
		LastTakenAt: m.LastTakenAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	})
	return err
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	var d medicineDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return medicines.Medicine{}, medicines.ErrNotFound
		}
		return medicines.Medicine{}, err
	}
	return d.toDomain(), nil
}

func (r *MedicinesRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]medicines.Medicine, error) {
	return r.find(ctx, bson.M{"owner_user_id": ownerUserID})
}

func (r *MedicinesRepo) ListByRelation(ctx context.Context, relation string) ([]medicines.Medicine, error) {
	return r.find(ctx, bson.M{"relation": relation})
}

func (r *MedicinesRepo) ListAll(ctx context.Context) ([]medicines.Medicine, error) {
	return r.find(ctx, bson.M{})
}

// Increment usa $inc + $set en un FindOneAndUpdate y devuelve el documento
// ya modificado.
func (r *MedicinesRepo) Increment(ctx context.Context, id string, action medicines.Action, at time.Time) (medicines.Medicine, error) {
	var field string
	switch action {
	case medicines.ActionTaken:
		field = "taken"
	case medicines.ActionSkip:
		field = "skipped"
	default:
		return medicines.Medicine{}, errors.New("unknown action " + string(action))
	}

	update := bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"last_taken_at": at, "updated_at": at},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d medicineDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return medicines.Medicine{}, medicines.ErrNotFound
		}
		return medicines.Medicine{}, err
	}
	return d.toDomain(), nil
}

func (r *MedicinesRepo) find(ctx context.Context, filter bson.M) ([]medicines.Medicine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []medicineDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]medicines.Medicine, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
