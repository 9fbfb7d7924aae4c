package mongodb

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"carehive/internal/domain/records"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type recordDoc struct {
	ID          string    `bson:"_id"`
	MemberID    string    `bson:"member_id"`
	Type        string    `bson:"type"`
	Name        string    `bson:"name"`
	Date        time.Time `bson:"date"`
	Description string    `bson:"description"`
	DoctorName  string    `bson:"doctor_name"`
	FileURL     string    `bson:"file_url"`
	Tags        []string  `bson:"tags"`
	AuthorType  string    `bson:"author_type"`
	AuthorID    string    `bson:"author_id"`
	RecordedAt  time.Time `bson:"recorded_at"`
	Status      string    `bson:"status"`
}

func (d recordDoc) toDomain() records.Record {
	return records.Record{
		ID:          d.ID,
		MemberID:    d.MemberID,
		Type:        records.RecordType(d.Type),
		Name:        d.Name,
		Date:        d.Date,
		Description: d.Description,
		DoctorName:  d.DoctorName,
		FileURL:     d.FileURL,
		Tags:        d.Tags,
		Author:      records.Author{Type: records.AuthorType(d.AuthorType), ID: d.AuthorID},
		RecordedAt:  d.RecordedAt,
		Status:      records.Status(d.Status),
	}
}

type RecordsRepo struct {
	coll *mongo.Collection
}

func NewRecordsRepo(db *mongo.Database) *RecordsRepo {
	return &RecordsRepo{coll: db.Collection(recordsCollection)}
}

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.coll.InsertOne(ctx, recordDoc{
		ID:          rec.ID,
		MemberID:    rec.MemberID,
		Type:        string(rec.Type),
		Name:        rec.Name,
		Date:        rec.Date,
		Description: rec.Description,
		DoctorName:  rec.DoctorName,
		FileURL:     rec.FileURL,
		Tags:        nonNil(rec.Tags),
		AuthorType:  string(rec.Author.Type),
		AuthorID:    rec.Author.ID,
		RecordedAt:  rec.RecordedAt,
		Status:      string(rec.Status),
	})
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	var d recordDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return records.Record{}, records.ErrNotFound
		}
		return records.Record{}, err
	}
	return d.toDomain(), nil
}

func (r *RecordsRepo) ListByMember(ctx context.Context, memberID string, filter records.ListFilter) ([]records.Record, error) {
	q := bson.M{"member_id": memberID}
	if filter.ActiveOnly {
		q["status"] = string(records.StatusActive)
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		q["type"] = bson.M{"$in": types}
	}
	if filter.From != nil || filter.To != nil {
		date := bson.M{}
		if filter.From != nil {
			date["$gte"] = *filter.From
		}
		if filter.To != nil {
			date["$lte"] = *filter.To
		}
		q["date"] = date
	}
	if text := strings.TrimSpace(filter.Query); text != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"doctor_name": re},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "recorded_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]records.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RecordsRepo) Void(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(records.StatusVoided)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return records.ErrNotFound
	}
	return nil
}
