package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

type Notification struct {
	ID                string           `bson:"_id" json:"id"`
	RecipientID       string           `bson:"recipient_id" json:"recipient_id"`
	Title             string           `bson:"title" json:"title" validate:"required,max=200"`
	Description       string           `bson:"description" json:"description" validate:"max=2000"`
	Type              NotificationType `bson:"type" json:"type" validate:"required,oneof=info success warning error"`
	RelatedEntityType string           `bson:"related_entity_type,omitempty" json:"related_entity_type,omitempty"`
	RelatedEntityID   string           `bson:"related_entity_id,omitempty" json:"related_entity_id,omitempty"`
	RelatedEntityName string           `bson:"related_entity_name,omitempty" json:"related_entity_name,omitempty"`
	ActionURL         string           `bson:"action_url,omitempty" json:"action_url,omitempty"`
	ActionLabel       string           `bson:"action_label,omitempty" json:"action_label,omitempty"`
	Read              bool             `bson:"read" json:"read"`
	ReadAt            *time.Time       `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt         time.Time        `bson:"created_at" json:"created_at"`
}

// BeforeCreate stamps id and creation time when missing.
func (n *Notification) BeforeCreate(now time.Time) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}

type NotificationPage struct {
	Items       []*Notification `json:"items"`
	Total       int64           `json:"total"`
	UnreadCount int64           `json:"unread_count"`
}

type NotificationsRepo interface {
	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) (*NotificationPage, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string) error
}
