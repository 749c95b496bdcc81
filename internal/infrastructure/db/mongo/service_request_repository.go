package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

const collectionServiceRequests = "service_requests"

type ServiceRequestRepository struct {
	col *mongo.Collection
}

func NewServiceRequestRepository(db *mongo.Database) *ServiceRequestRepository {
	return &ServiceRequestRepository{col: db.Collection(collectionServiceRequests)}
}

// Create inserts a new service request document.
func (r *ServiceRequestRepository) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, sr); err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}
	return nil
}

// FindByProtocol retrieves a service request by its protocol number.
func (r *ServiceRequestRepository) FindByProtocol(ctx context.Context, protocol string) (*domain.ServiceRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var sr domain.ServiceRequest
	err := r.col.FindOne(ctx, bson.M{"protocol": protocol}).Decode(&sr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrServiceRequestNotFound
		}
		return nil, err
	}
	return &sr, nil
}

// UpdateDescription replaces the description and returns the updated document.
func (r *ServiceRequestRepository) UpdateDescription(ctx context.Context, protocol, description string) (*domain.ServiceRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"description": description,
		"updated_at":  time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sr domain.ServiceRequest
	err := r.col.FindOneAndUpdate(ctx, bson.M{"protocol": protocol}, update, opts).Decode(&sr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrServiceRequestNotFound
		}
		return nil, err
	}
	return &sr, nil
}

// EnsureIndexes creates necessary indexes on the service_requests collection.
func (r *ServiceRequestRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "protocol", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_document", Value: 1}}},
		{Keys: bson.D{{Key: "attendant", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
