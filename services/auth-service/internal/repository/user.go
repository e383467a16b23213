package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
)

// UserRepository defines the interface for user-related database operations.
// Refresh token and reset token mutations are single-document atomic updates.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*model.User, error)
	PromoteToAdmin(ctx context.Context, email string) (bool, error)

	// AddRefreshToken appends entry and keeps only the newest limit entries.
	AddRefreshToken(ctx context.Context, id string, entry model.RefreshTokenEntry, limit int) error

	// RotateRefreshToken replaces oldToken with entry. It reports false when
	// oldToken is not in the user's collection.
	RotateRefreshToken(ctx context.Context, id, oldToken string, entry model.RefreshTokenEntry, limit int) (bool, error)

	RemoveRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshTokens(ctx context.Context, id string) error

	SetPasswordResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// ResetPassword sets passwordHash and clears the reset token only when
	// tokenHash matches and the stored expiry is after now.
	ResetPassword(ctx context.Context, email, tokenHash, passwordHash string, now time.Time) (bool, error)

	// VerifyEmail consumes a verification token and marks the user verified.
	VerifyEmail(ctx context.Context, tokenHash string) (*model.User, error)
}

// UpdateUserParams defines the optional parameters for updating a user.
// Only the fields that are not nil will be updated.
type UpdateUserParams struct {
	Name         *string
	Number       *string
	PasswordHash *string
	LastLogin    *time.Time
	LastSeen     *time.Time
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	// $push and $concatArrays reject a null array.
	if user.RefreshTokens == nil {
		user.RefreshTokens = []model.RefreshTokenEntry{}
	}

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) UpdateUser(
	ctx context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	updateMap := bson.M{}
	if params.Name != nil {
		updateMap["name"] = *params.Name
	}
	if params.Number != nil {
		updateMap["number"] = *params.Number
	}
	if params.PasswordHash != nil {
		updateMap["password_hash"] = *params.PasswordHash
	}
	if params.LastLogin != nil {
		updateMap["last_login"] = *params.LastLogin
	}
	if params.LastSeen != nil {
		updateMap["last_seen"] = *params.LastSeen
	}

	if len(updateMap) == 0 {
		return nil, errors.New("no user fields to update")
	}

	updateMap["updated_at"] = time.Now()

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) PromoteToAdmin(ctx context.Context, email string) (bool, error) {
	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"email": email, "role": bson.M{"$ne": model.RoleAdmin}},
		bson.M{"$set": bson.M{"role": model.RoleAdmin, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

func (r *userMongoRepository) AddRefreshToken(
	ctx context.Context,
	id string,
	entry model.RefreshTokenEntry,
	limit int,
) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$push": bson.M{
				"refresh_tokens": bson.M{
					"$each":  bson.A{entry},
					"$slice": -limit,
				},
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *userMongoRepository) RotateRefreshToken(
	ctx context.Context,
	id, oldToken string,
	entry model.RefreshTokenEntry,
	limit int,
) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}

	// $pull and $push cannot target the same field in one update document,
	// so the swap is expressed as a pipeline update guarded by the filter.
	remaining := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$refresh_tokens", bson.A{}}}}},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{
			"$$this.token",
			bson.D{{Key: "$literal", Value: oldToken}},
		}}}},
	}}}
	appended := bson.D{{Key: "$concatArrays", Value: bson.A{
		remaining,
		bson.A{bson.D{{Key: "$literal", Value: entry}}},
	}}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "refresh_tokens", Value: bson.D{{Key: "$slice", Value: bson.A{appended, -limit}}}},
			{Key: "updated_at", Value: entry.CreatedAt},
		}}},
	}

	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID, "refresh_tokens.token": oldToken},
		update,
	)
	if err != nil {
		return false, err
	}

	return result.MatchedCount > 0, nil
}

func (r *userMongoRepository) RemoveRefreshToken(ctx context.Context, id, token string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$pull": bson.M{"refresh_tokens": bson.M{"token": token}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	return err
}

func (r *userMongoRepository) ClearRefreshTokens(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"refresh_tokens": bson.A{}, "updated_at": time.Now()}},
	)
	return err
}

func (r *userMongoRepository) SetPasswordResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"reset_password_token":   tokenHash,
			"reset_password_expires": expiresAt,
			"updated_at":             time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *userMongoRepository) ResetPassword(
	ctx context.Context,
	email, tokenHash, passwordHash string,
	now time.Time,
) (bool, error) {
	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{
			"email":                  email,
			"reset_password_token":   tokenHash,
			"reset_password_expires": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"password_hash": passwordHash, "updated_at": now},
			"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""},
		},
	)
	if err != nil {
		return false, err
	}

	return result.MatchedCount > 0, nil
}

func (r *userMongoRepository) VerifyEmail(ctx context.Context, tokenHash string) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"verification_token": tokenHash},
		bson.M{
			"$set":   bson.M{"is_verified": true, "updated_at": time.Now()},
			"$unset": bson.M{"verification_token": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
