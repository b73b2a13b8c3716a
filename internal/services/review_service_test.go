package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reviewer registers an account with a linked customer record so it can write reviews.
func (f *fixture) reviewer(t *testing.T, email, first, last string) *models.Actor {
	t.Helper()
	actor := f.customer(email)
	_, err := f.mem.UpsertCustomer(context.Background(), &models.Customer{FirstName: first, LastName: last, Email: email})
	require.NoError(t, err)
	return actor
}

func (f *fixture) review(t *testing.T, actor *models.Actor, target models.Target, rating int) *models.Review {
	t.Helper()
	r, err := f.reviews.Create(context.Background(), actor, reviewFor(target, rating))
	require.NoError(t, err)
	return r
}

func guideRating(t *testing.T, f *fixture, id uuid.UUID) (float64, int) {
	t.Helper()
	g, err := f.catalog.GetGuide(context.Background(), id)
	require.NoError(t, err)
	return g.Rating, g.ReviewCount
}

func destinationRating(t *testing.T, f *fixture, id uuid.UUID) (float64, int) {
	t.Helper()
	d, err := f.catalog.GetDestination(context.Background(), id)
	require.NoError(t, err)
	return d.Rating, d.ReviewCount
}

func TestCreateReviewMaintainsGuideRating(t *testing.T) {
	f := newFixture(t, allFeatures)
	g := f.guide(t, "Ama", "ama@guides.test")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.reviewer(t, "esi@example.com", "Esi", "Owusu")

	f.review(t, kofi, models.GuideTarget(g.ID), 5)
	rating, count := guideRating(t, f, g.ID)
	assert.Equal(t, 5.0, rating)
	assert.Equal(t, 1, count)

	f.review(t, esi, models.GuideTarget(g.ID), 3)
	rating, count = guideRating(t, f, g.ID)
	assert.Equal(t, 4.0, rating)
	assert.Equal(t, 2, count)
}

func TestCreateReviewRoundsToOneDecimal(t *testing.T) {
	f := newFixture(t, allFeatures)
	d := f.destination(t, "Cape Coast")

	for i, rating := range []int{5, 4, 4} {
		actor := f.reviewer(t, uuid.NewString()+"@example.com", "Guest", string(rune('A'+i)))
		f.review(t, actor, models.DestinationTarget(d.ID), rating)
	}
	rating, count := destinationRating(t, f, d.ID)
	assert.Equal(t, 4.3, rating)
	assert.Equal(t, 3, count)
}

func TestCreateReviewRejectsSecondReviewOfSameTarget(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Kakum")
	g := f.guide(t, "Ama", "ama@guides.test")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")

	f.review(t, kofi, models.DestinationTarget(d.ID), 4)

	_, err := f.reviews.Create(ctx, kofi, reviewFor(models.DestinationTarget(d.ID), 2))
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "you have already reviewed this destination", cerr.Message)

	rating, count := destinationRating(t, f, d.ID)
	assert.Equal(t, 4.0, rating)
	assert.Equal(t, 1, count)

	// a guide is a different target
	f.review(t, kofi, models.GuideTarget(g.ID), 5)
}

func TestCreateReviewValidation(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Mole")
	g := f.guide(t, "Ama", "ama@guides.test")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")

	t.Run("both targets", func(t *testing.T) {
		in := reviewFor(models.DestinationTarget(d.ID), 4)
		in.GuideID = &g.ID
		_, err := f.reviews.Create(ctx, kofi, in)
		_, ok := models.IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("no target", func(t *testing.T) {
		in := reviewFor(models.DestinationTarget(d.ID), 4)
		in.DestinationID = nil
		_, err := f.reviews.Create(ctx, kofi, in)
		_, ok := models.IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("rating out of range", func(t *testing.T) {
		_, err := f.reviews.Create(ctx, kofi, reviewFor(models.DestinationTarget(d.ID), 6))
		verr, ok := models.IsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "rating")
	})

	t.Run("trip ends before it starts", func(t *testing.T) {
		in := reviewFor(models.DestinationTarget(d.ID), 4)
		in.TripStartDate, in.TripEndDate = "2024-05-10", "2024-05-01"
		_, err := f.reviews.Create(ctx, kofi, in)
		verr, ok := models.IsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "trip_end_date")
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := f.reviews.Create(ctx, kofi, reviewFor(models.GuideTarget(uuid.New()), 4))
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	_, count := destinationRating(t, f, d.ID)
	assert.Zero(t, count)
}

func TestCreateReviewRequiresCustomerRecord(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Volta")
	stranger := f.customer("nobody@example.com")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	kofiCustomer, err := f.mem.GetCustomerByEmail(ctx, kofi.Email)
	require.NoError(t, err)

	_, err = f.reviews.Create(ctx, stranger, reviewFor(models.DestinationTarget(d.ID), 4))
	assert.ErrorIs(t, err, models.ErrForbidden)

	in := reviewFor(models.DestinationTarget(d.ID), 4)
	in.CustomerID = &kofiCustomer.ID
	_, err = f.reviews.Create(ctx, stranger, in)
	assert.ErrorIs(t, err, models.ErrForbidden)

	// staff can record a review on behalf of a customer
	r, err := f.reviews.Create(ctx, f.staff, in)
	require.NoError(t, err)
	assert.Equal(t, kofiCustomer.ID, r.CustomerID)
}

func TestCreateGuideReviewNotifiesAdminsAndGuide(t *testing.T) {
	f := newFixture(t, allFeatures)
	guideAcc := f.account("ama@guides.test", "Ama", models.RoleGuide)
	g := f.guide(t, "Ama", guideAcc.Email)
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")

	f.review(t, kofi, models.GuideTarget(g.ID), 2)

	adminNotes := notesFor(f.mem, f.admin.UserID)
	require.Len(t, adminNotes, 1)
	assert.Equal(t, "New negative review", adminNotes[0].Title)
	assert.Equal(t, models.NotificationWarning, adminNotes[0].Type)

	guideNotes := notesFor(f.mem, guideAcc.UserID)
	require.Len(t, guideNotes, 1)
	assert.Equal(t, "You received a negative review", guideNotes[0].Title)
	assert.Empty(t, notesFor(f.mem, kofi.UserID))
}

func TestUpdateReviewRecomputesRating(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Aburi")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.reviewer(t, "esi@example.com", "Esi", "Owusu")

	r := f.review(t, kofi, models.DestinationTarget(d.ID), 5)
	f.review(t, esi, models.DestinationTarget(d.ID), 4)

	updated, err := f.reviews.Update(ctx, kofi, r.ID, &models.UpdateReviewInput{Rating: ptr(2), Title: ptr("  Changed my mind  ")})
	require.NoError(t, err)
	assert.Equal(t, "Changed my mind", updated.Title)

	rating, count := destinationRating(t, f, d.ID)
	assert.Equal(t, 3.0, rating)
	assert.Equal(t, 2, count)
}

func TestUpdateReviewPermissions(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Wli")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.reviewer(t, "esi@example.com", "Esi", "Owusu")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 4)

	_, err := f.reviews.Update(ctx, esi, r.ID, &models.UpdateReviewInput{Rating: ptr(1)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.reviews.Update(ctx, kofi, r.ID, &models.UpdateReviewInput{Featured: ptr(true)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.reviews.Update(ctx, f.staff, r.ID, &models.UpdateReviewInput{Content: ptr("edited by staff")})
	assert.ErrorIs(t, err, models.ErrForbidden)

	esiCustomer, err := f.mem.GetCustomerByEmail(ctx, esi.Email)
	require.NoError(t, err)
	_, err = f.reviews.Update(ctx, kofi, r.ID, &models.UpdateReviewInput{CustomerID: &esiCustomer.ID})
	assert.ErrorIs(t, err, models.ErrForbidden)

	featured, err := f.reviews.Update(ctx, f.staff, r.ID, &models.UpdateReviewInput{Featured: ptr(true), Verified: ptr(true)})
	require.NoError(t, err)
	assert.True(t, featured.Featured)
	assert.True(t, featured.Verified)
}

func TestUpdateReviewAuthorCannotClearFlag(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Paga")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 4)

	_, err := f.reviews.Moderate(ctx, f.staff, r.ID, &models.ModerateReviewInput{Action: models.ModerationFlag})
	require.NoError(t, err)

	updated, err := f.reviews.Update(ctx, kofi, r.ID, &models.UpdateReviewInput{Tags: []string{"family", "family", " beach "}})
	require.NoError(t, err)
	assert.True(t, updated.Flagged())
	assert.ElementsMatch(t, []string{"family", "beach", models.FlaggedTag}, []string(updated.Tags))
}

func TestDeleteReviewResetsRating(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	g := f.guide(t, "Yaw", "yaw@guides.test")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	r := f.review(t, kofi, models.GuideTarget(g.ID), 5)

	require.NoError(t, f.reviews.Delete(ctx, kofi, r.ID))

	rating, count := guideRating(t, f, g.ID)
	assert.Zero(t, rating)
	assert.Zero(t, count)

	_, err := f.reviews.Get(ctx, f.staff, r.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteReviewOnlyByAuthor(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Busua")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.reviewer(t, "esi@example.com", "Esi", "Owusu")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 3)

	for _, actor := range []*models.Actor{esi, f.staff, f.admin} {
		err := f.reviews.Delete(ctx, actor, r.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	}
	_, err := f.reviews.Get(ctx, f.staff, r.ID)
	assert.NoError(t, err)
}

func TestMarkHelpfulToggles(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Elmina")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.customer("esi@example.com")
	yaw := f.customer("yaw@example.com")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 5)

	res, err := f.reviews.MarkHelpful(ctx, esi, r.ID)
	require.NoError(t, err)
	assert.True(t, res.Helpful)
	assert.Equal(t, 1, res.HelpfulCount)

	res, err = f.reviews.MarkHelpful(ctx, yaw, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.HelpfulCount)

	res, err = f.reviews.MarkHelpful(ctx, esi, r.ID)
	require.NoError(t, err)
	assert.False(t, res.Helpful)
	assert.Equal(t, 1, res.HelpfulCount)

	res, err = f.reviews.MarkHelpful(ctx, yaw, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.HelpfulCount)

	_, err = f.reviews.MarkHelpful(ctx, esi, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReportReview(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Keta")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.customer("esi@example.com")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 1)
	before := len(notesFor(f.mem, f.admin.UserID))

	require.NoError(t, f.reviews.Report(ctx, esi, r.ID, &models.ReportReviewInput{Reason: "spam"}))

	err := f.reviews.Report(ctx, esi, r.ID, &models.ReportReviewInput{Reason: "still spam"})
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "you have already reported this review", cerr.Message)

	got, err := f.reviews.Get(ctx, f.staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReportCount)

	adminNotes := notesFor(f.mem, f.admin.UserID)
	require.Len(t, adminNotes, before+1)
	assert.Equal(t, "Review reported", adminNotes[len(adminNotes)-1].Title)

	err = f.reviews.Report(ctx, esi, r.ID, &models.ReportReviewInput{})
	_, ok := models.IsValidationError(err)
	assert.True(t, ok)
}

func TestReviewSideTablesDisabled(t *testing.T) {
	f := newFixture(t, models.Features{})
	ctx := context.Background()
	d := f.destination(t, "Anomabo")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.customer("esi@example.com")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 4)

	_, err := f.reviews.MarkHelpful(ctx, esi, r.ID)
	assert.ErrorIs(t, err, models.ErrFeatureDisabled)

	err = f.reviews.Report(ctx, esi, r.ID, &models.ReportReviewInput{Reason: "spam"})
	assert.ErrorIs(t, err, models.ErrFeatureDisabled)

	// deleting still works without the side tables
	require.NoError(t, f.reviews.Delete(ctx, kofi, r.ID))
}

func TestModerateReview(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	g := f.guide(t, "Kojo", "kojo@guides.test")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.reviewer(t, "esi@example.com", "Esi", "Owusu")
	good := f.review(t, kofi, models.GuideTarget(g.ID), 5)
	bad := f.review(t, esi, models.GuideTarget(g.ID), 1)

	_, err := f.reviews.Moderate(ctx, kofi, good.ID, &models.ModerateReviewInput{Action: models.ModerationApprove})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.reviews.Moderate(ctx, f.staff, good.ID, &models.ModerateReviewInput{Action: "bury"})
	_, ok := models.IsValidationError(err)
	assert.True(t, ok)

	flagged, err := f.reviews.Moderate(ctx, f.staff, good.ID, &models.ModerateReviewInput{Action: models.ModerationFlag})
	require.NoError(t, err)
	assert.True(t, flagged.Flagged())

	approved, err := f.reviews.Moderate(ctx, f.staff, good.ID, &models.ModerateReviewInput{Action: models.ModerationApprove})
	require.NoError(t, err)
	assert.True(t, approved.Verified)
	assert.False(t, approved.Flagged())

	featured, err := f.reviews.Moderate(ctx, f.staff, good.ID, &models.ModerateReviewInput{Action: models.ModerationFeature})
	require.NoError(t, err)
	assert.True(t, featured.Featured)

	rating, _ := guideRating(t, f, g.ID)
	assert.Equal(t, 3.0, rating)

	rejected, err := f.reviews.Moderate(ctx, f.admin, bad.ID, &models.ModerateReviewInput{Action: models.ModerationReject})
	require.NoError(t, err)
	assert.Nil(t, rejected)

	rating, count := guideRating(t, f, g.ID)
	assert.Equal(t, 5.0, rating)
	assert.Equal(t, 1, count)

	titles := map[string]bool{}
	for _, n := range notesFor(f.mem, kofi.UserID) {
		titles[n.Title] = true
	}
	assert.True(t, titles["Your review was approved"])
	assert.True(t, titles["Your review is now featured"])
	require.Len(t, notesFor(f.mem, esi.UserID), 1)
	assert.Equal(t, "Your review was removed", notesFor(f.mem, esi.UserID)[0].Title)
}

func TestListReviewsHidesFlaggedFromCustomers(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Larabanga")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	esi := f.reviewer(t, "esi@example.com", "Esi", "Owusu")
	f.review(t, kofi, models.DestinationTarget(d.ID), 5)
	hidden := f.review(t, esi, models.DestinationTarget(d.ID), 2)

	_, err := f.reviews.Moderate(ctx, f.staff, hidden.ID, &models.ModerateReviewInput{Action: models.ModerationFlag})
	require.NoError(t, err)

	items, total, _, err := f.reviews.List(ctx, kofi, ReviewQuery{DestinationID: &d.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Rating)

	_, total, _, err = f.reviews.List(ctx, f.staff, ReviewQuery{DestinationID: &d.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	items, _, _, err = f.reviews.List(ctx, f.staff, ReviewQuery{Flagged: ptr(true)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, hidden.ID, items[0].ID)

	_, _, _, err = f.reviews.List(ctx, kofi, ReviewQuery{Flagged: ptr(true)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.reviews.Get(ctx, kofi, hidden.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.reviews.Get(ctx, esi, hidden.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	got, err := f.reviews.Get(ctx, f.staff, hidden.ID)
	require.NoError(t, err)
	assert.True(t, got.Flagged())

	items, _, _, err = f.reviews.List(ctx, f.staff, ReviewQuery{MinRating: 3, Page: Page{Sort: "rating", Order: "asc"}})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, _, _, err = f.reviews.List(ctx, f.staff, ReviewQuery{MinRating: 7})
	_, ok := models.IsValidationError(err)
	assert.True(t, ok)
}

func TestRespondToReview(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Axim")
	kofi := f.reviewer(t, "kofi@example.com", "Kofi", "Mensah")
	r := f.review(t, kofi, models.DestinationTarget(d.ID), 3)

	_, err := f.reviews.Respond(ctx, kofi, r.ID, &models.RespondReviewInput{Content: "thanks"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	updated, err := f.reviews.Respond(ctx, f.staff, r.ID, &models.RespondReviewInput{Content: " Thank you for visiting "})
	require.NoError(t, err)
	assert.Equal(t, "Thank you for visiting", updated.ResponseContent)
	require.NotNil(t, updated.RespondedBy)
	assert.Equal(t, f.staff.UserID, *updated.RespondedBy)
	assert.NotNil(t, updated.ResponseDate)

	notes := notesFor(f.mem, kofi.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Management responded to your review", notes[0].Title)
}
