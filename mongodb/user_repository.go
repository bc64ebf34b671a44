package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/daccess-app/backend/domain"
)

// UserRepository implements domain.UserRepository on MongoDB.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates the repository and ensures its indexes. The
// unique email index and the partial unique (provider, provider_id) index
// are load-bearing: they are what serializes the duplicate-registration and
// duplicate-social-identity races the service layer cannot close on its own.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{users: db.Collection(UsersCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			// Case-insensitive unique email.
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			// At most one account per external identity; partial so local
			// accounts (empty provider_id) do not collide.
			Keys: bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"provider":    bson.M{"$gt": ""},
					"provider_id": bson.M{"$gt": ""},
				}),
		},
		{
			Keys: bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"reset_token_hash": bson.M{"$gt": ""}}),
		},
	}

	if _, err := r.users.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	log.Info().Msg("User collection indexes ensured")
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = bson.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.Provider == "" {
		user.Provider = domain.ProviderLocal
	}

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		log.Error().Err(err).Str("email", user.Email).Msg("Error creating user")
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	// Match under the index's case-insensitive collation.
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	return r.findOne(ctx, bson.M{"email": email}, opts)
}

func (r *UserRepository) GetByProviderIdentity(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error) {
	if provider == "" || providerID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"provider": provider, "provider_id": providerID}, nil)
}

func (r *UserRepository) UpdateProviderIdentity(ctx context.Context, id string, provider domain.Provider, providerID string) error {
	update := bson.M{"$set": bson.M{
		"provider":    provider,
		"provider_id": providerID,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("updating provider identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetResetTicket(ctx context.Context, email, tokenHash string, expiry time.Time) error {
	update := bson.M{"$set": bson.M{
		"reset_token_hash":   tokenHash,
		"reset_token_expiry": expiry.UTC(),
		"updated_at":         time.Now().UTC(),
	}}
	res, err := r.users.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return fmt.Errorf("storing reset ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	// The expiry filter lives here so an expired ticket is a plain miss; no
	// cleanup job is needed, the next forgot-password overwrites it.
	filter := bson.M{
		"reset_token_hash":   tokenHash,
		"reset_token_expiry": bson.M{"$gt": time.Now().UTC()},
	}
	return r.findOne(ctx, filter, nil)
}

func (r *UserRepository) UpdatePasswordAndClearResetTicket(ctx context.Context, id, passwordHash string) error {
	// One update: the new hash lands and the ticket (hash and expiry
	// together) disappears atomically, making the token single-use.
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expiry": ""},
	}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts options.Lister[options.FindOneOptions]) (*domain.User, error) {
	var user domain.User
	var err error
	if opts != nil {
		err = r.users.FindOne(ctx, filter, opts).Decode(&user)
	} else {
		err = r.users.FindOne(ctx, filter).Decode(&user)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Msg("Error querying users collection")
		return nil, err
	}
	return &user, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
