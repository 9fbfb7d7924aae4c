package mongodb

import (
	"context"
	"errors"
	"time"

	"carehive/internal/domain/members"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type memberDoc struct {
	ID          string `bson:"_id"`
	OwnerUserID string `bson:"owner_user_id"`

	Name         string `bson:"name"`
	Relationship string `bson:"relationship"`

	NIC        string     `bson:"nic"`
	Phone      string     `bson:"phone"`
	BloodGroup string     `bson:"blood_group"`
	HeightCM   float64    `bson:"height_cm"`
	WeightKG   float64    `bson:"weight_kg"`
	BirthDate  *time.Time `bson:"birth_date,omitempty"`

	Allergies  []string `bson:"allergies"`
	Conditions []string `bson:"conditions"`

	Emergency emergencyDoc `bson:"emergency_contact"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type emergencyDoc struct {
	Name         string `bson:"name"`
	Phone        string `bson:"phone"`
	Relationship string `bson:"relationship"`
}

func toMemberDoc(m members.Member) memberDoc {
	return memberDoc{
		ID:           m.ID,
		OwnerUserID:  m.OwnerUserID,
		Name:         m.Name,
		Relationship: string(m.Relationship),
		NIC:          m.NIC,
		Phone:        m.Phone,
		BloodGroup:   string(m.BloodGroup),
		HeightCM:     m.HeightCM,
		WeightKG:     m.WeightKG,
		BirthDate:    m.BirthDate,
		Allergies:    nonNil(m.Allergies),
		Conditions:   nonNil(m.Conditions),
		Emergency: emergencyDoc{
			Name:         m.EmergencyContact.Name,
			Phone:        m.EmergencyContact.Phone,
			Relationship: m.EmergencyContact.Relationship,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (d memberDoc) toDomain() members.Member {
	return members.Member{
		ID:           d.ID,
		OwnerUserID:  d.OwnerUserID,
		Name:         d.Name,
		Relationship: members.Relationship(d.Relationship),
		NIC:          d.NIC,
		Phone:        d.Phone,
		BloodGroup:   members.BloodGroup(d.BloodGroup),
		HeightCM:     d.HeightCM,
		WeightKG:     d.WeightKG,
		BirthDate:    d.BirthDate,
		Allergies:    d.Allergies,
		Conditions:   d.Conditions,
		EmergencyContact: members.EmergencyContact{
			Name:         d.Emergency.Name,
			Phone:        d.Emergency.Phone,
			Relationship: d.Emergency.Relationship,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MembersRepo struct {
	coll *mongo.Collection
}

func NewMembersRepo(db *mongo.Database) *MembersRepo {
	return &MembersRepo{coll: db.Collection(membersCollection)}
}

func (r *MembersRepo) Create(ctx context.Context, m members.Member) error {
	_, err := r.coll.InsertOne(ctx, toMemberDoc(m))
	return err
}

func (r *MembersRepo) Update(ctx context.Context, m members.Member) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": m.ID}, toMemberDoc(m))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return members.ErrNotFound
	}
	return nil
}

func (r *MembersRepo) GetByID(ctx context.Context, id string) (members.Member, error) {
	var d memberDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return members.Member{}, members.ErrNotFound
		}
		return members.Member{}, err
	}
	return d.toDomain(), nil
}

func (r *MembersRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]members.Member, error) {
	return r.find(ctx, bson.M{"owner_user_id": ownerUserID})
}

func (r *MembersRepo) ListByIDs(ctx context.Context, ids []string) ([]members.Member, error) {
	if len(ids) == 0 {
		return []members.Member{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MembersRepo) find(ctx context.Context, filter bson.M) ([]members.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []memberDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]members.Member, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
