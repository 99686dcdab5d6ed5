package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
	"github.com/billing-resolver/helpers/utils"
)

// MongoStoreService backs the property, billing-property and settings
// stores with one Mongo database.
type MongoStoreService struct {
	properties        *mongo.Collection
	billingProperties *mongo.Collection
	settings          *mongo.Collection
	logger            *zap.Logger
}

func NewMongoStoreService(db *mongo.Database, logger *zap.Logger) *MongoStoreService {
	s := &MongoStoreService{
		properties:        db.Collection("properties"),
		billingProperties: db.Collection("billing_properties"),
		settings:          db.Collection("organization_settings"),
		logger:            logger,
	}
	s.ensureIndexes()
	return s
}

func (s *MongoStoreService) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	propertyIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "organization_id", Value: 1}}},
	}
	billingIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "context_id", Value: 1}, {Key: "address_key", Value: 1}}},
		{Keys: bson.D{{Key: "context_id", Value: 1}, {Key: "global_id", Value: 1}}},
		{Keys: bson.D{{Key: "context_id", Value: 1}, {Key: "address", Value: 1}}},
	}
	settingsIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "organization_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	if _, err := s.properties.Indexes().CreateMany(ctx, propertyIndexes); err != nil {
		s.logger.Warn("create property indexes failed", zap.Error(err))
	}
	if _, err := s.billingProperties.Indexes().CreateMany(ctx, billingIndexes); err != nil {
		s.logger.Warn("create billing property indexes failed", zap.Error(err))
	}
	if _, err := s.settings.Indexes().CreateMany(ctx, settingsIndexes); err != nil {
		s.logger.Warn("create settings indexes failed", zap.Error(err))
	}
}

func (s *MongoStoreService) ListPropertiesByOrganization(ctx context.Context, organizationID string, chunkSize int, fn func([]models.Property) error) error {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	filter := bson.M{"organization_id": organizationID, "deleted_at": nil}
	opts := options.Find().SetBatchSize(int32(chunkSize))
	cursor, err := s.properties.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("list organization properties: %w", err)
	}
	defer cursor.Close(ctx)

	chunk := make([]models.Property, 0, chunkSize)
	for cursor.Next(ctx) {
		var p models.Property
		if err := cursor.Decode(&p); err != nil {
			return fmt.Errorf("decode property: %w", err)
		}
		chunk = append(chunk, p)
		if len(chunk) == chunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]models.Property, 0, chunkSize)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate organization properties: %w", err)
	}
	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

func (s *MongoStoreService) PropertyExists(ctx context.Context, propertyID, organizationID string) (bool, error) {
	filter := bson.M{"_id": propertyID, "organization_id": organizationID, "deleted_at": nil}
	count, err := s.properties.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check property registration: %w", err)
	}
	return count > 0, nil
}

func (s *MongoStoreService) FindFirst(ctx context.Context, contextID string, cond models.AddressConditionValues) (*models.BillingProperty, error) {
	var or []bson.M
	if cond.AddressKey != "" {
		or = append(or, bson.M{"address_key": cond.AddressKey})
	}
	if address := firstNonEmpty(cond.NormalizedAddress, cond.Address); address != "" {
		or = append(or, bson.M{"address": address})
	}
	if cond.Fias != "" {
		or = append(or, bson.M{"global_id": cond.Fias})
	}
	if len(or) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"$and": []bson.M{
			{"$or": or},
			{"context_id": contextID, "deleted_at": nil},
		},
	}
	return s.findOneBillingProperty(ctx, filter)
}

func (s *MongoStoreService) FindByAddress(ctx context.Context, contextID, address, addressKey string) (*models.BillingProperty, error) {
	var or []bson.M
	if addressKey != "" {
		or = append(or, bson.M{"address_key": addressKey})
	}
	if address != "" {
		or = append(or, bson.M{"address": address})
	}
	if len(or) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"$and": []bson.M{
			{"$or": or},
			{"context_id": contextID, "deleted_at": nil},
		},
	}
	return s.findOneBillingProperty(ctx, filter)
}

func (s *MongoStoreService) findOneBillingProperty(ctx context.Context, filter bson.M) (*models.BillingProperty, error) {
	var property models.BillingProperty
	err := s.billingProperties.FindOne(ctx, filter).Decode(&property)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find billing property: %w", err)
	}
	return &property, nil
}

func (s *MongoStoreService) Create(ctx context.Context, property *models.BillingProperty) (*models.BillingProperty, error) {
	if property.ID == "" {
		property.ID = utils.GenerateUUID()
	}
	now := time.Now().UTC()
	property.CreatedAt = now
	property.UpdatedAt = now
	if _, err := s.billingProperties.InsertOne(ctx, property); err != nil {
		return nil, fmt.Errorf("create billing property: %w", err)
	}
	return property, nil
}

func (s *MongoStoreService) Update(ctx context.Context, id string, update models.BillingPropertyUpdate) (*models.BillingProperty, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Address != nil {
		set["address"] = *update.Address
	}
	if update.NormalizedAddress != nil {
		set["normalized_address"] = *update.NormalizedAddress
	}
	if update.GlobalID != nil {
		set["global_id"] = *update.GlobalID
	}
	if update.ImportID != nil {
		set["import_id"] = *update.ImportID
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var property models.BillingProperty
	err := s.billingProperties.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&property)
	if err != nil {
		return nil, fmt.Errorf("update billing property: %w", err)
	}
	return &property, nil
}

func (s *MongoStoreService) OrganizationSettings(ctx context.Context, organizationID string) (*models.OrganizationSettings, error) {
	var settings models.OrganizationSettings
	err := s.settings.FindOne(ctx, bson.M{"organization_id": organizationID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.OrganizationSettings{OrganizationID: organizationID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load organization settings: %w", err)
	}
	return &settings, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
