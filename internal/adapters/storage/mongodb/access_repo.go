package mongodb

import (
	"context"
	"errors"
	"time"

	"carehive/internal/domain/access"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type grantDoc struct {
	ID            string     `bson:"_id"`
	MemberID      string     `bson:"member_id"`
	OwnerUserID   string     `bson:"owner_user_id"`
	GranteeUserID string     `bson:"grantee_user_id"`
	Scopes        []string   `bson:"scopes"`
	Status        string     `bson:"status"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	RevokedAt     *time.Time `bson:"revoked_at,omitempty"`
}

func toGrantDoc(g access.Grant) grantDoc {
	scopes := make([]string, 0, len(g.Scopes))
	for _, s := range g.Scopes {
		scopes = append(scopes, string(s))
	}
	return grantDoc{
		ID:            g.ID,
		MemberID:      g.MemberID,
		OwnerUserID:   g.OwnerUserID,
		GranteeUserID: g.GranteeUserID,
		Scopes:        scopes,
		Status:        string(g.Status),
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		RevokedAt:     g.RevokedAt,
	}
}

func (d grantDoc) toDomain() access.Grant {
	scopes := make([]access.Scope, 0, len(d.Scopes))
	for _, s := range d.Scopes {
		scopes = append(scopes, access.Scope(s))
	}
	return access.Grant{
		ID:            d.ID,
		MemberID:      d.MemberID,
		OwnerUserID:   d.OwnerUserID,
		GranteeUserID: d.GranteeUserID,
		Scopes:        scopes,
		Status:        access.Status(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		RevokedAt:     d.RevokedAt,
	}
}

type AccessGrantsRepo struct {
	coll *mongo.Collection
}

func NewAccessGrantsRepo(db *mongo.Database) *AccessGrantsRepo {
	return &AccessGrantsRepo{coll: db.Collection(grantsCollection)}
}

func (r *AccessGrantsRepo) Create(ctx context.Context, g access.Grant) error {
	_, err := r.coll.InsertOne(ctx, toGrantDoc(g))
	return err
}

func (r *AccessGrantsRepo) Update(ctx context.Context, g access.Grant) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": g.ID}, toGrantDoc(g))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return access.ErrNotFound
	}
	return nil
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (access.Grant, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *AccessGrantsRepo) ListByMember(ctx context.Context, memberID string) ([]access.Grant, error) {
	return r.find(ctx, bson.M{"member_id": memberID}, bson.D{{Key: "created_at", Value: 1}})
}

func (r *AccessGrantsRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]access.Grant, error) {
	return r.find(ctx, bson.M{"grantee_user_id": granteeUserID}, bson.D{{Key: "updated_at", Value: -1}})
}

func (r *AccessGrantsRepo) GetActiveGrant(ctx context.Context, memberID, granteeUserID string) (access.Grant, error) {
	return r.findOne(ctx, bson.M{
		"member_id":       memberID,
		"grantee_user_id": granteeUserID,
		"status":          string(access.StatusActive),
	}, options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

func (r *AccessGrantsRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (access.Grant, error) {
	var d grantDoc
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&d)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&d)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return access.Grant{}, access.ErrNotFound
		}
		return access.Grant{}, err
	}
	return d.toDomain(), nil
}

func (r *AccessGrantsRepo) find(ctx context.Context, filter bson.M, sort bson.D) ([]access.Grant, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var docs []grantDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]access.Grant, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
