package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoDB       = "trailbook"
	NotificationsColName = "notifications"
)

func (mdb *MongodbRepo) GetCollection(ctx context.Context, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

// EnsureNotificationIndexes creates the inbox index used by ListNotifications.
func (mdb *MongodbRepo) EnsureNotificationIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return err
	}
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("recipient_created"),
	})
	if err != nil {
		return fmt.Errorf("failed to create notification index: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) InsertNotification(ctx context.Context, n *Notification) error {
	if err := ValidateStruct(n); err != nil {
		return err
	}
	n.BeforeCreate(time.Now().UTC())

	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	if _, err := col.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification into database: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) (*NotificationPage, error) {
	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	unread, err := col.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]*Notification, 0, limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return &NotificationPage{Items: items, Total: total, UnreadCount: unread}, nil
}

func (mdb *MongodbRepo) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res := col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
	)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// Ping checks the inbox database is reachable.
func (mdb *MongodbRepo) Ping(ctx context.Context) error {
	if mdb.mongodbClient == nil {
		return fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Ping(ctx, nil)
}
