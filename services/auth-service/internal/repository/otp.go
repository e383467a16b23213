package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
)

// OTPRepository defines the interface for one-time passcode operations.
type OTPRepository interface {
	// CreateOTP stores a new passcode. Earlier passcodes for the same email stay valid.
	CreateOTP(ctx context.Context, otp *model.OTP) (*model.OTP, error)

	// GetLatestUnused returns the most recently created unused passcode matching email and code.
	GetLatestUnused(ctx context.Context, email, code string) (*model.OTP, error)

	// MarkUsed flips used to true. It reports false if the passcode was already used.
	MarkUsed(ctx context.Context, id bson.ObjectID) (bool, error)
}

const otpCollection = "otps"

// Expired passcodes are kept this long before the TTL monitor removes them.
const otpRetention = time.Hour

type otpMongoRepository struct {
	db *mongo.Database
}

// NewOTPMongoRepository creates a new MongoDB repository for one-time passcodes.
func NewOTPMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) OTPRepository {
	collection := db.Collection(otpCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "code", Value: 1},
				{Key: "used", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(otpRetention / time.Second)), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create otp indexes")
	}

	return &otpMongoRepository{
		db: db,
	}
}

func (r *otpMongoRepository) CreateOTP(ctx context.Context, otp *model.OTP) (*model.OTP, error) {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}
	otp.Used = false

	result, err := r.db.Collection(otpCollection).InsertOne(ctx, otp)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		otp.ID = objectID
	}

	return otp, nil
}

func (r *otpMongoRepository) GetLatestUnused(ctx context.Context, email, code string) (*model.OTP, error) {
	filter := bson.M{"email": email, "code": code, "used": false}

	var otp model.OTP
	err := r.db.Collection(otpCollection).
		FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).
		Decode(&otp)
	if err != nil {
		return nil, err
	}

	return &otp, nil
}

func (r *otpMongoRepository) MarkUsed(ctx context.Context, id bson.ObjectID) (bool, error) {
	result, err := r.db.Collection(otpCollection).UpdateOne(
		ctx,
		bson.M{"_id": id, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}
