package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	notifyFanout  = 4
	notifyTimeout = 10 * time.Second
)

// Mailer delivers the email copy of a notification.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type NotificationService struct {
	inbox     models.NotificationsRepo
	directory models.AccountDirectory
	mailer    Mailer
	logger    *slog.Logger
	baseURL   string
}

// NewNotificationService wires the inbox and directory. mailer may be nil to skip email.
func NewNotificationService(inbox models.NotificationsRepo, directory models.AccountDirectory, mailer Mailer, logger *slog.Logger, baseURL string) *NotificationService {
	return &NotificationService{
		inbox:     inbox,
		directory: directory,
		mailer:    mailer,
		logger:    logger,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Notify stores one notification and emails its recipient when a mailer is configured.
func (ns *NotificationService) Notify(ctx context.Context, note models.Notification) error {
	if err := ns.inbox.InsertNotification(ctx, &note); err != nil {
		return fmt.Errorf("failed to store notification for %s: %w", note.RecipientID, err)
	}
	if ns.mailer == nil {
		return nil
	}

	id, err := uuid.Parse(note.RecipientID)
	if err != nil {
		return fmt.Errorf("invalid recipient id %q: %w", note.RecipientID, err)
	}
	acc, err := ns.directory.GetAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", id, err)
	}
	body, err := ns.emailBody(note)
	if err != nil {
		return err
	}
	if err := ns.mailer.Send(ctx, acc.Email, note.Title, body); err != nil {
		return fmt.Errorf("failed to email %s: %w", acc.Email, err)
	}
	return nil
}

var emailTemplate = template.Must(template.New("notification").Parse(
	`<p>{{.Description}}</p>{{if .URL}}<p><a href="{{.URL}}">{{.Label}}</a></p>{{end}}`))

func (ns *NotificationService) emailBody(note models.Notification) (string, error) {
	data := struct {
		Description, URL, Label string
	}{Description: note.Description, Label: note.ActionLabel}
	if note.ActionURL != "" {
		data.URL = ns.baseURL + note.ActionURL
		if data.Label == "" {
			data.Label = "Open"
		}
	}

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

// Dispatch delivers notes in parallel once the data they describe is committed.
// Delivery failures are logged and never returned.
func (ns *NotificationService) Dispatch(ctx context.Context, notes ...models.Notification) {
	if len(notes) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(notifyFanout)
	for _, note := range notes {
		g.Go(func() error {
			if err := ns.Notify(ctx, note); err != nil {
				ns.logger.Warn("notification delivery failed",
					"recipient_id", note.RecipientID,
					"title", note.Title,
					"related_entity_id", note.RelatedEntityID,
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// AdminRecipients lists the account ids of every administrator.
func (ns *NotificationService) AdminRecipients(ctx context.Context) []uuid.UUID {
	admins, err := ns.directory.ListAccountsByRole(ctx, models.RoleAdmin)
	if err != nil {
		ns.logger.Warn("failed to list administrators", "error", err)
		return nil
	}
	ids := make([]uuid.UUID, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids
}

// RecipientByEmail resolves the account linked to an email, if any.
func (ns *NotificationService) RecipientByEmail(ctx context.Context, email string) (uuid.UUID, bool) {
	if strings.TrimSpace(email) == "" {
		return uuid.Nil, false
	}
	acc, err := ns.directory.FindAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			ns.logger.Warn("failed to resolve account by email", "error", err)
		}
		return uuid.Nil, false
	}
	return acc.ID, true
}

// List returns the caller's inbox, newest first.
func (ns *NotificationService) List(ctx context.Context, actor *models.Actor, unreadOnly bool, p Page) (*models.NotificationPage, Page, error) {
	pg, err := p.resolve(nil)
	if err != nil {
		return nil, p, err
	}
	resolved := Page{Limit: pg.limit, Offset: pg.offset}
	page, err := ns.inbox.ListNotifications(ctx, actor.UserID.String(), unreadOnly, pg.offset, pg.limit)
	if err != nil {
		return nil, resolved, fmt.Errorf("failed to list notifications: %w", err)
	}
	return page, resolved, nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, actor *models.Actor, id string) error {
	if err := ns.inbox.MarkNotificationRead(ctx, actor.UserID.String(), id); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

// fanOut copies tmpl once per distinct recipient.
func fanOut(tmpl models.Notification, recipients ...uuid.UUID) []models.Notification {
	seen := make(map[uuid.UUID]bool, len(recipients))
	out := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		n := tmpl
		n.RecipientID = id.String()
		out = append(out, n)
	}
	return out
}
