package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
)

type ReviewService struct {
	store    models.Store
	notifier *NotificationService
	features models.Features
	logger   *slog.Logger
	clock    func() time.Time
}

func NewReviewService(store models.Store, notifier *NotificationService, features models.Features, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		notifier: notifier,
		features: features,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

type ReviewQuery struct {
	DestinationID *uuid.UUID
	GuideID       *uuid.UUID
	CustomerID    *uuid.UUID
	MinRating     int
	Verified      *bool
	Featured      *bool
	Flagged       *bool
	Page          Page
}

func (rs *ReviewService) List(ctx context.Context, actor *models.Actor, q ReviewQuery) ([]*models.Review, int64, Page, error) {
	pg, err := q.Page.resolve(models.ReviewSortColumns)
	if err != nil {
		return nil, 0, q.Page, err
	}
	resolved := Page{Limit: pg.limit, Offset: pg.offset}
	if q.MinRating < 0 || q.MinRating > 5 {
		return nil, 0, resolved, models.NewValidationError().Add("min_rating", "must be between 1 and 5")
	}

	filter := models.ReviewFilter{
		DestinationID: q.DestinationID,
		GuideID:       q.GuideID,
		CustomerID:    q.CustomerID,
		MinRating:     q.MinRating,
		Verified:      q.Verified,
		Featured:      q.Featured,
		Flagged:       q.Flagged,
		SortColumn:    pg.column,
		SortDesc:      pg.desc,
		Limit:         pg.limit,
		Offset:        pg.offset,
	}
	if !actor.IsStaff() {
		if q.Flagged != nil && *q.Flagged {
			return nil, 0, resolved, models.NewPermissionError("only staff can list flagged reviews")
		}
		hidden := false
		filter.Flagged = &hidden
	}

	items, total, err := rs.store.ListReviews(ctx, filter)
	if err != nil {
		return nil, 0, resolved, err
	}
	return items, total, resolved, nil
}

// Get hides flagged reviews from everyone but staff, the same way List does.
func (rs *ReviewService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Review, error) {
	r, err := rs.store.GetReviewByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", id, err)
	}
	if r.Flagged() && !actor.IsStaff() {
		return nil, fmt.Errorf("review %s: %w", id, models.ErrNotFound)
	}
	return r, nil
}

// resolveAuthor picks the reviewing customer: staff may name one, everyone else writes as themselves.
func (rs *ReviewService) resolveAuthor(ctx context.Context, actor *models.Actor, requested *uuid.UUID) (*models.Customer, error) {
	if requested != nil && actor.IsStaff() {
		c, err := rs.store.GetCustomerByID(ctx, *requested)
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", *requested, err)
		}
		return c, nil
	}

	c, err := rs.store.GetCustomerByEmail(ctx, actor.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewPermissionError("no customer record is linked to %s", actor.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve author: %w", err)
	}
	if requested != nil && *requested != c.ID {
		return nil, models.NewPermissionError("you can only write reviews as yourself")
	}
	return c, nil
}

func (rs *ReviewService) targetName(ctx context.Context, t models.Target) (string, error) {
	switch t.Kind {
	case models.TargetDestination:
		d, err := rs.store.GetDestinationByID(ctx, t.ID)
		if err != nil {
			return "", fmt.Errorf("destination %s: %w", t.ID, err)
		}
		return d.Name, nil
	case models.TargetGuide:
		g, err := rs.store.GetGuideByID(ctx, t.ID)
		if err != nil {
			return "", fmt.Errorf("guide %s: %w", t.ID, err)
		}
		return g.Name, nil
	}
	return "", fmt.Errorf("unknown target kind %q", t.Kind)
}

func parseTrip(start, end string) (*time.Time, *time.Time, error) {
	verr := models.NewValidationError()
	var s, e *time.Time
	if start != "" {
		d, err := models.ParseDay(start)
		if err != nil {
			verr.Add("trip_start_date", "must be a date formatted as "+models.DayLayout)
		}
		s = &d
	}
	if end != "" {
		d, err := models.ParseDay(end)
		if err != nil {
			verr.Add("trip_end_date", "must be a date formatted as "+models.DayLayout)
		}
		e = &d
	}
	if !verr.HasErrors() && s != nil && e != nil && e.Before(*s) {
		verr.Add("trip_end_date", "must be on or after trip_start_date")
	}
	return s, e, verr.OrNil()
}

func tripDuration(s, e *time.Time) int {
	if s == nil || e == nil {
		return 0
	}
	return models.DaysBetween(*s, *e)
}

func alreadyReviewed(t models.Target) error {
	return models.NewConflictError("you have already reviewed this %s", t.Kind)
}

func (rs *ReviewService) Create(ctx context.Context, actor *models.Actor, in *models.CreateReviewInput) (*models.Review, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}
	tripStart, tripEnd, err := parseTrip(in.TripStartDate, in.TripEndDate)
	if err != nil {
		return nil, err
	}

	var target models.Target
	if in.GuideID != nil {
		target = models.GuideTarget(*in.GuideID)
	} else {
		target = models.DestinationTarget(*in.DestinationID)
	}
	name, err := rs.targetName(ctx, target)
	if err != nil {
		return nil, err
	}
	author, err := rs.resolveAuthor(ctx, actor, in.CustomerID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		Title:         in.Title,
		Content:       in.Content,
		Rating:        in.Rating,
		CustomerID:    author.ID,
		DestinationID: in.DestinationID,
		GuideID:       in.GuideID,
		TripStartDate: tripStart,
		TripEndDate:   tripEnd,
		TripDuration:  tripDuration(tripStart, tripEnd),
		TripType:      in.TripType,
		Photos:        models.StringList(in.Photos),
		Highlights:    models.StringList(in.Highlights),
		Tags:          models.StringList(in.Tags),
	}
	review.Sanitize()

	err = inTx(ctx, rs.store, func(ctx context.Context) error {
		_, err := rs.store.FindReviewByAuthor(ctx, author.ID, target)
		switch {
		case err == nil:
			return alreadyReviewed(target)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		review.ID = uuid.New()
		if err := rs.store.CreateReview(ctx, review); err != nil {
			if errors.Is(err, models.ErrDuplicateKey) {
				return alreadyReviewed(target)
			}
			return err
		}
		return RecomputeRating(ctx, rs.store, target)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	created, err := rs.store.GetReviewByID(ctx, review.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload review %s: %w", review.ID, err)
	}
	rs.logger.Info("review created", "review_id", created.ID, "target", target.String(), "rating", created.Rating)

	rs.notifyCreated(ctx, created, target, name, author)
	return created, nil
}

func reviewNote(r *models.Review, typ models.NotificationType, title, description string) models.Notification {
	return models.Notification{
		Title:             title,
		Description:       description,
		Type:              typ,
		RelatedEntityType: "review",
		RelatedEntityID:   r.ID.String(),
		RelatedEntityName: r.Title,
		ActionURL:         "/reviews/" + r.ID.String(),
		ActionLabel:       "View review",
	}
}

func (rs *ReviewService) notifyCreated(ctx context.Context, r *models.Review, target models.Target, name string, author *models.Customer) {
	tone := models.ToneForRating(r.Rating)
	typ := models.NotificationInfo
	switch tone {
	case models.TonePositive:
		typ = models.NotificationSuccess
	case models.ToneNegative:
		typ = models.NotificationWarning
	}
	title := fmt.Sprintf("New %s review", tone)
	desc := fmt.Sprintf("%s rated %s %d/5: %s", author.FullName(), name, r.Rating, r.Title)

	notes := fanOut(reviewNote(r, typ, title, desc), rs.notifier.AdminRecipients(ctx)...)
	if target.Kind == models.TargetGuide && r.Guide != nil {
		if id, ok := rs.notifier.RecipientByEmail(ctx, r.Guide.Email); ok {
			notes = append(notes, fanOut(reviewNote(r, typ, fmt.Sprintf("You received a %s review", tone), desc), id)...)
		}
	}
	rs.notifier.Dispatch(ctx, notes...)
}

func isAuthor(actor *models.Actor, r *models.Review) bool {
	return r.Customer != nil && actor.EmailMatches(r.Customer.Email)
}

func (rs *ReviewService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in *models.UpdateReviewInput) (*models.Review, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	var updated *models.Review
	err := inTx(ctx, rs.store, func(ctx context.Context) error {
		cur, err := rs.store.GetReviewByID(ctx, id)
		if err != nil {
			return fmt.Errorf("review %s: %w", id, err)
		}
		if in.CustomerID != nil && *in.CustomerID != cur.CustomerID {
			return models.NewPermissionError("review authorship cannot be reassigned")
		}
		if in.TouchesContent() && !isAuthor(actor, cur) {
			return models.NewPermissionError("only the author can edit this review")
		}
		if in.TouchesModeration() && !actor.IsStaff() {
			return models.NewPermissionError("only staff can moderate reviews")
		}

		fields, err := rs.mergeReviewUpdate(actor, cur, in)
		if err != nil {
			return err
		}
		if err := rs.store.UpdateReview(ctx, id, fields); err != nil {
			return err
		}
		if err := RecomputeRating(ctx, rs.store, cur.Target()); err != nil {
			return err
		}
		updated, err = rs.store.GetReviewByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return updated, nil
}

func (rs *ReviewService) mergeReviewUpdate(actor *models.Actor, cur *models.Review, in *models.UpdateReviewInput) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		fields["content"] = strings.TrimSpace(*in.Content)
	}
	if in.Rating != nil {
		fields["rating"] = *in.Rating
	}
	if in.TripType != nil {
		fields["trip_type"] = *in.TripType
	}

	if in.TripStartDate != nil || in.TripEndDate != nil {
		start, end := "", ""
		if cur.TripStartDate != nil {
			start = cur.TripStartDate.Format(models.DayLayout)
		}
		if cur.TripEndDate != nil {
			end = cur.TripEndDate.Format(models.DayLayout)
		}
		if in.TripStartDate != nil {
			start = *in.TripStartDate
		}
		if in.TripEndDate != nil {
			end = *in.TripEndDate
		}
		s, e, err := parseTrip(start, end)
		if err != nil {
			return nil, err
		}
		fields["trip_start_date"] = s
		fields["trip_end_date"] = e
		fields["trip_duration"] = tripDuration(s, e)
	}

	if in.Photos != nil {
		fields["photos"] = models.NewStringList(in.Photos)
	}
	if in.Highlights != nil {
		fields["highlights"] = models.NewStringList(in.Highlights)
	}
	tags := cur.Tags
	if in.Tags != nil {
		// the flagged tag is moderation state, authors cannot set or clear it
		scratch := models.Review{Tags: models.NewStringList(in.Tags)}
		scratch.SetFlagged(cur.Flagged())
		tags = scratch.Tags
		fields["tags"] = tags
	}

	if in.Verified != nil {
		fields["verified"] = *in.Verified
	}
	if in.Featured != nil {
		fields["featured"] = *in.Featured
	}
	if in.Flagged != nil {
		scratch := models.Review{Tags: tags}
		scratch.SetFlagged(*in.Flagged)
		fields["tags"] = scratch.Tags
	}
	if in.Response != nil {
		now := rs.clock()
		fields["response_content"] = strings.TrimSpace(*in.Response)
		fields["response_date"] = &now
		fields["responded_by"] = &actor.UserID
	}
	return fields, nil
}

// removeReview drops the side rows, the review and refreshes the target rating.
// Side table failures are tolerated, the tables are optional per deployment.
func (rs *ReviewService) removeReview(ctx context.Context, r *models.Review) error {
	if rs.features.ReviewVotes {
		if err := rs.store.DeleteHelpfulVotes(ctx, r.ID); err != nil {
			rs.logger.Warn("failed to delete helpful votes", "review_id", r.ID, "error", err)
		}
	}
	if rs.features.ReviewReports {
		if err := rs.store.DeleteReviewReports(ctx, r.ID); err != nil {
			rs.logger.Warn("failed to delete review reports", "review_id", r.ID, "error", err)
		}
	}
	if err := rs.store.DeleteReview(ctx, r.ID); err != nil {
		return err
	}
	return RecomputeRating(ctx, rs.store, r.Target())
}

func (rs *ReviewService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	err := inTx(ctx, rs.store, func(ctx context.Context) error {
		r, err := rs.store.GetReviewByID(ctx, id)
		if err != nil {
			return fmt.Errorf("review %s: %w", id, err)
		}
		if !isAuthor(actor, r) {
			return models.NewPermissionError("only the author can delete this review")
		}
		return rs.removeReview(ctx, r)
	})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rs.logger.Info("review deleted", "review_id", id, "actor_id", actor.UserID)
	return nil
}

// MarkHelpful toggles the caller's helpful vote.
func (rs *ReviewService) MarkHelpful(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.HelpfulResult, error) {
	if !rs.features.ReviewVotes {
		return nil, fmt.Errorf("helpful votes: %w", models.ErrFeatureDisabled)
	}

	var result *models.HelpfulResult
	err := inTx(ctx, rs.store, func(ctx context.Context) error {
		if _, err := rs.store.GetReviewByID(ctx, id); err != nil {
			return fmt.Errorf("review %s: %w", id, err)
		}
		voted, err := rs.store.HelpfulVoteExists(ctx, id, actor.UserID)
		if err != nil {
			return err
		}

		delta := 1
		if voted {
			delta = -1
			err = rs.store.RemoveHelpfulVote(ctx, id, actor.UserID)
		} else {
			err = rs.store.AddHelpfulVote(ctx, &models.ReviewHelpful{ReviewID: id, UserID: actor.UserID})
		}
		if err != nil {
			return err
		}
		if err := rs.store.AdjustReviewCounter(ctx, id, "helpful_count", delta); err != nil {
			return err
		}

		r, err := rs.store.GetReviewByID(ctx, id)
		if err != nil {
			return err
		}
		result = &models.HelpfulResult{ReviewID: id, Helpful: !voted, HelpfulCount: r.HelpfulCount}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle helpful vote: %w", err)
	}
	return result, nil
}

func (rs *ReviewService) Report(ctx context.Context, actor *models.Actor, id uuid.UUID, in *models.ReportReviewInput) error {
	if !rs.features.ReviewReports {
		return fmt.Errorf("review reports: %w", models.ErrFeatureDisabled)
	}
	if err := models.ValidateStruct(in); err != nil {
		return err
	}

	var reported *models.Review
	err := inTx(ctx, rs.store, func(ctx context.Context) error {
		r, err := rs.store.GetReviewByID(ctx, id)
		if err != nil {
			return fmt.Errorf("review %s: %w", id, err)
		}
		err = rs.store.CreateReviewReport(ctx, &models.ReviewReport{ReviewID: id, UserID: actor.UserID, Reason: strings.TrimSpace(in.Reason)})
		if errors.Is(err, models.ErrDuplicateKey) {
			return models.NewConflictError("you have already reported this review")
		}
		if err != nil {
			return err
		}
		if err := rs.store.AdjustReviewCounter(ctx, id, "report_count", 1); err != nil {
			return err
		}
		reported = r
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not report review: %w", err)
	}

	desc := fmt.Sprintf("Review %q was reported: %s", reported.Title, strings.TrimSpace(in.Reason))
	rs.notifier.Dispatch(ctx, fanOut(reviewNote(reported, models.NotificationWarning, "Review reported", desc), rs.notifier.AdminRecipients(ctx)...)...)
	return nil
}

// Moderate applies a staff decision. reject deletes the review and returns nil.
func (rs *ReviewService) Moderate(ctx context.Context, actor *models.Actor, id uuid.UUID, in *models.ModerateReviewInput) (*models.Review, error) {
	if !actor.IsStaff() {
		return nil, models.NewPermissionError("only staff can moderate reviews")
	}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	var before, after *models.Review
	err := inTx(ctx, rs.store, func(ctx context.Context) error {
		r, err := rs.store.GetReviewByID(ctx, id)
		if err != nil {
			return fmt.Errorf("review %s: %w", id, err)
		}
		before = r

		fields := make(map[string]interface{})
		switch in.Action {
		case models.ModerationReject:
			return rs.removeReview(ctx, r)
		case models.ModerationApprove:
			scratch := models.Review{Tags: r.Tags}
			scratch.SetFlagged(false)
			fields["verified"] = true
			fields["tags"] = scratch.Tags
		case models.ModerationFeature:
			fields["featured"] = true
		case models.ModerationUnfeature:
			fields["featured"] = false
		case models.ModerationFlag:
			scratch := models.Review{Tags: r.Tags}
			scratch.SetFlagged(true)
			fields["tags"] = scratch.Tags
		}
		if err := rs.store.UpdateReview(ctx, id, fields); err != nil {
			return err
		}
		after, err = rs.store.GetReviewByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to moderate review: %w", err)
	}
	rs.logger.Info("review moderated", "review_id", id, "action", in.Action, "actor_id", actor.UserID)

	rs.notifyAuthor(ctx, before, in.Action)
	return after, nil
}

func (rs *ReviewService) notifyAuthor(ctx context.Context, r *models.Review, action models.ModerationAction) {
	if r.Customer == nil {
		return
	}
	var typ models.NotificationType
	var title string
	switch action {
	case models.ModerationApprove:
		typ, title = models.NotificationSuccess, "Your review was approved"
	case models.ModerationFeature:
		typ, title = models.NotificationSuccess, "Your review is now featured"
	case models.ModerationReject:
		typ, title = models.NotificationWarning, "Your review was removed"
	default:
		return
	}
	id, ok := rs.notifier.RecipientByEmail(ctx, r.Customer.Email)
	if !ok {
		return
	}
	rs.notifier.Dispatch(ctx, fanOut(reviewNote(r, typ, title, r.Title), id)...)
}

// Respond sets the management response shown under a review.
func (rs *ReviewService) Respond(ctx context.Context, actor *models.Actor, id uuid.UUID, in *models.RespondReviewInput) (*models.Review, error) {
	if !actor.IsStaff() {
		return nil, models.NewPermissionError("only staff can respond to reviews")
	}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	updated, err := rs.Update(ctx, actor, id, &models.UpdateReviewInput{Response: &content})
	if err != nil {
		return nil, err
	}
	if updated.Customer != nil {
		if rid, ok := rs.notifier.RecipientByEmail(ctx, updated.Customer.Email); ok {
			note := reviewNote(updated, models.NotificationInfo, "Management responded to your review", content)
			rs.notifier.Dispatch(ctx, fanOut(note, rid)...)
		}
	}
	return updated, nil
}
