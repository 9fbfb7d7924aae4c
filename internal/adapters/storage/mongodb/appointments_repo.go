package mongodb

import (
	"context"
	"errors"
	"time"

	"carehive/internal/domain/appointments"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type appointmentDoc struct {
	ID          string    `bson:"_id"`
	MemberID    string    `bson:"member_id"`
	Doctor      string    `bson:"doctor"`
	Reason      string    `bson:"reason"`
	ScheduledAt time.Time `bson:"scheduled_at"`
	Time        string    `bson:"time"`
	Notes       string    `bson:"notes"`
	Status      string    `bson:"status"`
	Type        string    `bson:"type"`
	CreatedBy   string    `bson:"created_by"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toAppointmentDoc(a appointments.Appointment) appointmentDoc {
	return appointmentDoc{
		ID:          a.ID,
		MemberID:    a.MemberID,
		Doctor:      a.Doctor,
		Reason:      a.Reason,
		ScheduledAt: a.ScheduledAt,
		Time:        a.Time,
		Notes:       a.Notes,
		Status:      string(a.Status),
		Type:        string(a.Type),
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d appointmentDoc) toDomain() appointments.Appointment {
	return appointments.Appointment{
		ID:          d.ID,
		MemberID:    d.MemberID,
		Doctor:      d.Doctor,
		Reason:      d.Reason,
		ScheduledAt: d.ScheduledAt,
		Time:        d.Time,
		Notes:       d.Notes,
		Status:      appointments.Status(d.Status),
		Type:        appointments.Type(d.Type),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type AppointmentsRepo struct {
	coll *mongo.Collection
}

func NewAppointmentsRepo(db *mongo.Database) *AppointmentsRepo {
	return &AppointmentsRepo{coll: db.Collection(appointmentsCollection)}
}

func (r *AppointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	_, err := r.coll.InsertOne(ctx, toAppointmentDoc(a))
	return err
}

func (r *AppointmentsRepo) Update(ctx context.Context, a appointments.Appointment) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": a.ID}, toAppointmentDoc(a))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return appointments.ErrNotFound
	}
	return nil
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	var d appointmentDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return appointments.Appointment{}, appointments.ErrNotFound
		}
		return appointments.Appointment{}, err
	}
	return d.toDomain(), nil
}

func (r *AppointmentsRepo) ListByMember(ctx context.Context, memberID string) ([]appointments.Appointment, error) {
	return r.find(ctx, bson.M{"member_id": memberID}, 0)
}

func (r *AppointmentsRepo) ListUpcoming(ctx context.Context, memberIDs []string, from time.Time, limit int) ([]appointments.Appointment, error) {
	if len(memberIDs) == 0 {
		return []appointments.Appointment{}, nil
	}
	return r.find(ctx, bson.M{
		"member_id":    bson.M{"$in": memberIDs},
		"status":       bson.M{"$in": bson.A{string(appointments.StatusScheduled), string(appointments.StatusUpcoming)}},
		"scheduled_at": bson.M{"$gte": from},
	}, limit)
}

func (r *AppointmentsRepo) find(ctx context.Context, filter bson.M, limit int) ([]appointments.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []appointmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]appointments.Appointment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
