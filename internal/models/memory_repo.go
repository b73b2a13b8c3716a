package models

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type voteKey struct {
	ReviewID uuid.UUID
	UserID   uuid.UUID
}

type memoryState struct {
	customers    map[uuid.UUID]Customer
	destinations map[uuid.UUID]Destination
	guides       map[uuid.UUID]Guide
	bookings     map[uuid.UUID]Booking
	reviews      map[uuid.UUID]Review
	helpful      map[voteKey]ReviewHelpful
	reports      map[voteKey]ReviewReport
}

func newMemoryState() *memoryState {
	return &memoryState{
		customers:    make(map[uuid.UUID]Customer),
		destinations: make(map[uuid.UUID]Destination),
		guides:       make(map[uuid.UUID]Guide),
		bookings:     make(map[uuid.UUID]Booking),
		reviews:      make(map[uuid.UUID]Review),
		helpful:      make(map[voteKey]ReviewHelpful),
		reports:      make(map[voteKey]ReviewReport),
	}
}

// clone copies every table. Rows are values and their slices are only ever replaced, never mutated.
func (s *memoryState) clone() *memoryState {
	return &memoryState{
		customers:    maps.Clone(s.customers),
		destinations: maps.Clone(s.destinations),
		guides:       maps.Clone(s.guides),
		bookings:     maps.Clone(s.bookings),
		reviews:      maps.Clone(s.reviews),
		helpful:      maps.Clone(s.helpful),
		reports:      maps.Clone(s.reports),
	}
}

// MemoryRepo keeps every table in process. It backs STORE_DRIVER=memory and the service tests,
// and also serves as account directory and notification inbox.
type MemoryRepo struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memoryState

	features Features

	accMu    sync.RWMutex
	accounts map[uuid.UUID]Account

	inboxMu sync.Mutex
	inbox   []*Notification
}

func NewMemoryRepo(features Features) *MemoryRepo {
	return &MemoryRepo{
		state:    newMemoryState(),
		features: features,
		accounts: make(map[uuid.UUID]Account),
	}
}

type memTxKey struct{}

func inMemTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(bool)
	return ok
}

func (m *MemoryRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.state.clone()
	m.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryRepo) Ping(ctx context.Context) error { return ctx.Err() }

// write serializes with running transactions unless ctx already belongs to one.
func (m *MemoryRepo) write(ctx context.Context, fn func(s *memoryState) error) error {
	if !inMemTx(ctx) {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *MemoryRepo) read(fn func(s *memoryState)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.state)
}

func now() time.Time { return time.Now().UTC() }

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// customers

func (m *MemoryRepo) GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var out *Customer
	m.read(func(s *memoryState) {
		if c, ok := s.customers[id]; ok {
			out = &c
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *Customer
	m.read(func(s *memoryState) {
		for _, c := range s.customers {
			if c.Email == email {
				out = &c
				return
			}
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) UpsertCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	var out Customer
	err := m.write(ctx, func(s *memoryState) error {
		for id, existing := range s.customers {
			if existing.Email != c.Email {
				continue
			}
			mergeCustomer(&existing, c)
			existing.UpdatedAt = now()
			s.customers[id] = existing
			out = existing
			return nil
		}
		row := *c
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.CreatedAt, row.UpdatedAt = now(), now()
		s.customers[row.ID] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// mergeCustomer copies the non-blank contact details of src onto dst.
func mergeCustomer(dst, src *Customer) {
	set := func(d *string, v string) {
		if v != "" {
			*d = v
		}
	}
	set(&dst.FirstName, src.FirstName)
	set(&dst.LastName, src.LastName)
	set(&dst.Phone, src.Phone)
	set(&dst.Avatar, src.Avatar)
	set(&dst.Address, src.Address)
	set(&dst.City, src.City)
	set(&dst.Country, src.Country)
	set(&dst.PostalCode, src.PostalCode)
	set(&dst.Nationality, src.Nationality)
}

// catalog

func (m *MemoryRepo) CreateDestination(ctx context.Context, d *Destination) error {
	return m.write(ctx, func(s *memoryState) error {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.CreatedAt, d.UpdatedAt = now(), now()
		s.destinations[d.ID] = *d
		return nil
	})
}

func (m *MemoryRepo) GetDestinationByID(ctx context.Context, id uuid.UUID) (*Destination, error) {
	var out *Destination
	m.read(func(s *memoryState) {
		if d, ok := s.destinations[id]; ok {
			out = &d
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) ListDestinations(ctx context.Context, offset, limit int) ([]*Destination, int64, error) {
	var all []*Destination
	m.read(func(s *memoryState) {
		for _, d := range s.destinations {
			all = append(all, &d)
		}
	})
	slices.SortFunc(all, func(a, b *Destination) int { return cmp.Compare(a.Name, b.Name) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *MemoryRepo) CreateGuide(ctx context.Context, g *Guide) error {
	return m.write(ctx, func(s *memoryState) error {
		for _, existing := range s.guides {
			if strings.EqualFold(existing.Email, g.Email) {
				return fmt.Errorf("%w: guides_email", ErrDuplicateKey)
			}
		}
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		g.CreatedAt, g.UpdatedAt = now(), now()
		s.guides[g.ID] = *g
		return nil
	})
}

func (m *MemoryRepo) GetGuideByID(ctx context.Context, id uuid.UUID) (*Guide, error) {
	var out *Guide
	m.read(func(s *memoryState) {
		if g, ok := s.guides[id]; ok {
			out = &g
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) ListGuides(ctx context.Context, offset, limit int) ([]*Guide, int64, error) {
	var all []*Guide
	m.read(func(s *memoryState) {
		for _, g := range s.guides {
			all = append(all, &g)
		}
	})
	slices.SortFunc(all, func(a, b *Guide) int { return cmp.Compare(a.Name, b.Name) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *MemoryRepo) SetRating(ctx context.Context, target Target, rating float64, count int) error {
	return m.write(ctx, func(s *memoryState) error {
		switch target.Kind {
		case TargetDestination:
			d, ok := s.destinations[target.ID]
			if !ok {
				return ErrNotFound
			}
			d.Rating, d.ReviewCount, d.UpdatedAt = rating, count, now()
			s.destinations[target.ID] = d
		case TargetGuide:
			g, ok := s.guides[target.ID]
			if !ok {
				return ErrNotFound
			}
			g.Rating, g.ReviewCount, g.UpdatedAt = rating, count, now()
			s.guides[target.ID] = g
		default:
			return fmt.Errorf("unknown target kind %q", target.Kind)
		}
		return nil
	})
}

// bookings

func (s *memoryState) hydrateBooking(b Booking) *Booking {
	if c, ok := s.customers[b.CustomerID]; ok {
		b.Customer = &c
	}
	if d, ok := s.destinations[b.DestinationID]; ok {
		b.Destination = &d
	}
	if b.GuideID != nil {
		if g, ok := s.guides[*b.GuideID]; ok {
			b.Guide = &g
		}
	}
	return &b
}

func compareBookings(col string, a, b *Booking) int {
	switch col {
	case "start_date":
		return a.StartDate.Compare(b.StartDate)
	case "end_date":
		return a.EndDate.Compare(b.EndDate)
	case "total_amount":
		return cmp.Compare(a.TotalAmount, b.TotalAmount)
	case "status":
		return cmp.Compare(a.Status, b.Status)
	case "booking_number":
		return cmp.Compare(a.BookingNumber, b.BookingNumber)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (m *MemoryRepo) ListBookings(ctx context.Context, f BookingFilter) ([]*Booking, int64, error) {
	var all []*Booking
	m.read(func(s *memoryState) {
		for _, b := range s.bookings {
			if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
				continue
			}
			if f.DestinationID != nil && b.DestinationID != *f.DestinationID {
				continue
			}
			if f.GuideID != nil && (b.GuideID == nil || *b.GuideID != *f.GuideID) {
				continue
			}
			if f.Status != "" && b.Status != f.Status {
				continue
			}
			if !f.InRange(&b) {
				continue
			}
			all = append(all, s.hydrateBooking(b))
		}
	})

	slices.SortFunc(all, func(a, b *Booking) int {
		c := compareBookings(f.SortColumn, a, b)
		if f.SortDesc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})
	return page(all, f.Offset, f.Limit), int64(len(all)), nil
}

func (m *MemoryRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var out *Booking
	m.read(func(s *memoryState) {
		if b, ok := s.bookings[id]; ok {
			out = s.hydrateBooking(b)
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) ListActiveBookings(ctx context.Context, q ActiveBookingQuery) ([]*Booking, error) {
	var out []*Booking
	m.read(func(s *memoryState) {
		for _, b := range s.bookings {
			if !b.Status.IsActive() || !b.Occupies(q.Target) || b.ID == q.ExcludeID {
				continue
			}
			out = append(out, &b)
		}
	})
	return out, nil
}

func (m *MemoryRepo) CreateBooking(ctx context.Context, b *Booking) error {
	return m.write(ctx, func(s *memoryState) error {
		for _, existing := range s.bookings {
			if existing.BookingNumber == b.BookingNumber {
				return fmt.Errorf("%w: bookings_booking_number", ErrDuplicateKey)
			}
		}
		if _, ok := s.customers[b.CustomerID]; !ok {
			return fmt.Errorf("customer %s: %w", b.CustomerID, ErrNotFound)
		}
		if _, ok := s.destinations[b.DestinationID]; !ok {
			return fmt.Errorf("destination %s: %w", b.DestinationID, ErrNotFound)
		}
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.CreatedAt, b.UpdatedAt = now(), now()
		row := *b
		row.Customer, row.Destination, row.Guide = nil, nil, nil
		s.bookings[row.ID] = row
		return nil
	})
}

func applyBookingFields(b *Booking, fields map[string]interface{}) error {
	for col, v := range fields {
		var ok bool
		switch col {
		case "status":
			b.Status, ok = v.(BookingStatus)
		case "start_date":
			b.StartDate, ok = v.(time.Time)
		case "end_date":
			b.EndDate, ok = v.(time.Time)
		case "duration":
			b.Duration, ok = v.(int)
		case "adults":
			b.Adults, ok = v.(int)
		case "children":
			b.Children, ok = v.(int)
		case "infants":
			b.Infants, ok = v.(int)
		case "total_travelers":
			b.TotalTravelers, ok = v.(int)
		case "total_amount":
			b.TotalAmount, ok = v.(float64)
		case "currency":
			b.Currency, ok = v.(string)
		case "payment_status":
			b.PaymentStatus, ok = v.(PaymentStatus)
		case "deposit_amount":
			b.DepositAmount, ok = v.(float64)
		case "deposit_paid":
			b.DepositPaid, ok = v.(bool)
		case "balance_due_date":
			b.BalanceDueDate, ok = v.(*time.Time)
		case "special_requests":
			b.SpecialRequests, ok = v.(StringList)
		case "customer_id":
			b.CustomerID, ok = v.(uuid.UUID)
		case "destination_id":
			b.DestinationID, ok = v.(uuid.UUID)
		case "guide_id":
			b.GuideID, ok = v.(*uuid.UUID)
		default:
			return fmt.Errorf("unknown booking column %q", col)
		}
		if !ok {
			return fmt.Errorf("bad value %T for booking column %q", v, col)
		}
	}
	return nil
}

func (m *MemoryRepo) UpdateBooking(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return m.write(ctx, func(s *memoryState) error {
		b, ok := s.bookings[id]
		if !ok {
			return ErrNotFound
		}
		if err := applyBookingFields(&b, fields); err != nil {
			return err
		}
		b.UpdatedAt = now()
		s.bookings[id] = b
		return nil
	})
}

func (m *MemoryRepo) ReplaceBookingChildren(ctx context.Context, id uuid.UUID, c *BookingChildren) error {
	if c == nil || c.IsEmpty() {
		return nil
	}
	return m.write(ctx, func(s *memoryState) error {
		b, ok := s.bookings[id]
		if !ok {
			return ErrNotFound
		}
		c.Apply(&b)
		s.bookings[id] = b
		return nil
	})
}

func (m *MemoryRepo) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	return m.write(ctx, func(s *memoryState) error {
		if _, ok := s.bookings[id]; !ok {
			return ErrNotFound
		}
		delete(s.bookings, id)
		return nil
	})
}

func (m *MemoryRepo) BookingStats(ctx context.Context, year int) (*BookingStats, error) {
	stats := &BookingStats{ByStatus: make(map[BookingStatus]int64), Year: year, Monthly: []MonthlyCount{}}
	monthly := make(map[string]int64)
	m.read(func(s *memoryState) {
		for _, b := range s.bookings {
			stats.Total++
			stats.ByStatus[b.Status]++
			if (b.Status == BookingConfirmed || b.Status == BookingCompleted) && b.PaymentStatus == PaymentPaid {
				stats.Revenue += b.TotalAmount
			}
			if b.CreatedAt.Year() == year {
				monthly[b.CreatedAt.Format("2006-01")]++
			}
		}
	})
	for _, month := range slices.Sorted(maps.Keys(monthly)) {
		stats.Monthly = append(stats.Monthly, MonthlyCount{Month: month, Count: monthly[month]})
	}
	return stats, nil
}

// BookingChildCount reports how many child rows of each kind a booking still holds.
func (m *MemoryRepo) BookingChildCount(id uuid.UUID) int {
	n := 0
	m.read(func(s *memoryState) {
		b, ok := s.bookings[id]
		if !ok {
			return
		}
		n = len(b.Accommodations) + len(b.Transportation) + len(b.Activities) + len(b.EquipmentRentals) +
			len(b.Transactions) + len(b.Documents) + len(b.Notes)
		if b.EmergencyContact != nil {
			n++
		}
	})
	return n
}

func (m *MemoryRepo) BookingCount() int {
	n := 0
	m.read(func(s *memoryState) { n = len(s.bookings) })
	return n
}

// reviews

func (s *memoryState) hydrateReview(r Review) *Review {
	if c, ok := s.customers[r.CustomerID]; ok {
		r.Customer = &c
	}
	if r.DestinationID != nil {
		if d, ok := s.destinations[*r.DestinationID]; ok {
			r.Destination = &d
		}
	}
	if r.GuideID != nil {
		if g, ok := s.guides[*r.GuideID]; ok {
			r.Guide = &g
		}
	}
	return &r
}

func compareReviews(col string, a, b *Review) int {
	switch col {
	case "rating":
		return cmp.Compare(a.Rating, b.Rating)
	case "helpful_count":
		return cmp.Compare(a.HelpfulCount, b.HelpfulCount)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (m *MemoryRepo) ListReviews(ctx context.Context, f ReviewFilter) ([]*Review, int64, error) {
	var all []*Review
	m.read(func(s *memoryState) {
		for _, r := range s.reviews {
			if f.Matches(&r) {
				all = append(all, s.hydrateReview(r))
			}
		}
	})
	slices.SortFunc(all, func(a, b *Review) int {
		c := compareReviews(f.SortColumn, a, b)
		if f.SortDesc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})
	return page(all, f.Offset, f.Limit), int64(len(all)), nil
}

func (m *MemoryRepo) GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	var out *Review
	m.read(func(s *memoryState) {
		if r, ok := s.reviews[id]; ok {
			out = s.hydrateReview(r)
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) FindReviewByAuthor(ctx context.Context, customerID uuid.UUID, target Target) (*Review, error) {
	var out *Review
	m.read(func(s *memoryState) {
		for _, r := range s.reviews {
			if r.CustomerID == customerID && r.Target() == target {
				out = &r
				return
			}
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *MemoryRepo) ListTargetRatings(ctx context.Context, target Target) ([]int, error) {
	var out []int
	m.read(func(s *memoryState) {
		for _, r := range s.reviews {
			if r.Target() == target {
				out = append(out, r.Rating)
			}
		}
	})
	return out, nil
}

func (m *MemoryRepo) CreateReview(ctx context.Context, r *Review) error {
	return m.write(ctx, func(s *memoryState) error {
		for _, existing := range s.reviews {
			if existing.CustomerID == r.CustomerID && existing.Target() == r.Target() {
				return fmt.Errorf("%w: reviews_customer_target", ErrDuplicateKey)
			}
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.CreatedAt, r.UpdatedAt = now(), now()
		row := *r
		row.Customer, row.Destination, row.Guide = nil, nil, nil
		s.reviews[row.ID] = row
		return nil
	})
}

func applyReviewFields(r *Review, fields map[string]interface{}) error {
	for col, v := range fields {
		var ok bool
		switch col {
		case "title":
			r.Title, ok = v.(string)
		case "content":
			r.Content, ok = v.(string)
		case "rating":
			r.Rating, ok = v.(int)
		case "trip_start_date":
			r.TripStartDate, ok = v.(*time.Time)
		case "trip_end_date":
			r.TripEndDate, ok = v.(*time.Time)
		case "trip_duration":
			r.TripDuration, ok = v.(int)
		case "trip_type":
			r.TripType, ok = v.(string)
		case "photos":
			r.Photos, ok = v.(StringList)
		case "highlights":
			r.Highlights, ok = v.(StringList)
		case "tags":
			r.Tags, ok = v.(StringList)
		case "verified":
			r.Verified, ok = v.(bool)
		case "featured":
			r.Featured, ok = v.(bool)
		case "response_content":
			r.ResponseContent, ok = v.(string)
		case "response_date":
			r.ResponseDate, ok = v.(*time.Time)
		case "responded_by":
			r.RespondedBy, ok = v.(*uuid.UUID)
		default:
			return fmt.Errorf("unknown review column %q", col)
		}
		if !ok {
			return fmt.Errorf("bad value %T for review column %q", v, col)
		}
	}
	return nil
}

func (m *MemoryRepo) UpdateReview(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return m.write(ctx, func(s *memoryState) error {
		r, ok := s.reviews[id]
		if !ok {
			return ErrNotFound
		}
		if err := applyReviewFields(&r, fields); err != nil {
			return err
		}
		r.UpdatedAt = now()
		s.reviews[id] = r
		return nil
	})
}

func (m *MemoryRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return m.write(ctx, func(s *memoryState) error {
		if _, ok := s.reviews[id]; !ok {
			return ErrNotFound
		}
		delete(s.reviews, id)
		return nil
	})
}

func (m *MemoryRepo) AdjustReviewCounter(ctx context.Context, id uuid.UUID, column string, delta int) error {
	if !reviewCounters[column] {
		return fmt.Errorf("unknown review counter %q", column)
	}
	return m.write(ctx, func(s *memoryState) error {
		r, ok := s.reviews[id]
		if !ok {
			return ErrNotFound
		}
		var counter *int
		switch column {
		case "helpful_count":
			counter = &r.HelpfulCount
		case "unhelpful_count":
			counter = &r.UnhelpfulCount
		case "report_count":
			counter = &r.ReportCount
		}
		*counter = max(*counter+delta, 0)
		s.reviews[id] = r
		return nil
	})
}

func (m *MemoryRepo) votesEnabled() error {
	if !m.features.ReviewVotes {
		return fmt.Errorf("%w: review_helpful", ErrFeatureDisabled)
	}
	return nil
}

func (m *MemoryRepo) reportsEnabled() error {
	if !m.features.ReviewReports {
		return fmt.Errorf("%w: review_reports", ErrFeatureDisabled)
	}
	return nil
}

func (m *MemoryRepo) HelpfulVoteExists(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	if err := m.votesEnabled(); err != nil {
		return false, err
	}
	var ok bool
	m.read(func(s *memoryState) { _, ok = s.helpful[voteKey{reviewID, userID}] })
	return ok, nil
}

func (m *MemoryRepo) AddHelpfulVote(ctx context.Context, vote *ReviewHelpful) error {
	if err := m.votesEnabled(); err != nil {
		return err
	}
	return m.write(ctx, func(s *memoryState) error {
		key := voteKey{vote.ReviewID, vote.UserID}
		if _, ok := s.helpful[key]; ok {
			return fmt.Errorf("%w: review_helpful_pkey", ErrDuplicateKey)
		}
		if vote.CreatedAt.IsZero() {
			vote.CreatedAt = now()
		}
		s.helpful[key] = *vote
		return nil
	})
}

func (m *MemoryRepo) RemoveHelpfulVote(ctx context.Context, reviewID, userID uuid.UUID) error {
	if err := m.votesEnabled(); err != nil {
		return err
	}
	return m.write(ctx, func(s *memoryState) error {
		delete(s.helpful, voteKey{reviewID, userID})
		return nil
	})
}

func (m *MemoryRepo) DeleteHelpfulVotes(ctx context.Context, reviewID uuid.UUID) error {
	if err := m.votesEnabled(); err != nil {
		return err
	}
	return m.write(ctx, func(s *memoryState) error {
		maps.DeleteFunc(s.helpful, func(k voteKey, _ ReviewHelpful) bool { return k.ReviewID == reviewID })
		return nil
	})
}

func (m *MemoryRepo) CreateReviewReport(ctx context.Context, report *ReviewReport) error {
	if err := m.reportsEnabled(); err != nil {
		return err
	}
	return m.write(ctx, func(s *memoryState) error {
		key := voteKey{report.ReviewID, report.UserID}
		if _, ok := s.reports[key]; ok {
			return fmt.Errorf("%w: review_reports_pkey", ErrDuplicateKey)
		}
		if report.CreatedAt.IsZero() {
			report.CreatedAt = now()
		}
		s.reports[key] = *report
		return nil
	})
}

func (m *MemoryRepo) DeleteReviewReports(ctx context.Context, reviewID uuid.UUID) error {
	if err := m.reportsEnabled(); err != nil {
		return err
	}
	return m.write(ctx, func(s *memoryState) error {
		maps.DeleteFunc(s.reports, func(k voteKey, _ ReviewReport) bool { return k.ReviewID == reviewID })
		return nil
	})
}

// account directory

func (m *MemoryRepo) AddAccount(acc Account) *Account {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	acc.Email = strings.ToLower(strings.TrimSpace(acc.Email))
	m.accMu.Lock()
	m.accounts[acc.ID] = acc
	m.accMu.Unlock()
	return &acc
}

func (m *MemoryRepo) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	m.accMu.RLock()
	defer m.accMu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (m *MemoryRepo) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	m.accMu.RLock()
	defer m.accMu.RUnlock()
	for _, acc := range m.accounts {
		if strings.EqualFold(acc.Email, strings.TrimSpace(email)) {
			return &acc, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListAccountsByRole(ctx context.Context, role Role) ([]*Account, error) {
	m.accMu.RLock()
	defer m.accMu.RUnlock()
	var out []*Account
	for _, acc := range m.accounts {
		if acc.Role == role {
			out = append(out, &acc)
		}
	}
	slices.SortFunc(out, func(a, b *Account) int { return cmp.Compare(a.Email, b.Email) })
	return out, nil
}

// notification inbox

func (m *MemoryRepo) InsertNotification(ctx context.Context, n *Notification) error {
	if err := ValidateStruct(n); err != nil {
		return err
	}
	n.BeforeCreate(now())
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	row := *n
	m.inbox = append(m.inbox, &row)
	return nil
}

func (m *MemoryRepo) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) (*NotificationPage, error) {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()

	var matched []*Notification
	var unread int64
	for i := len(m.inbox) - 1; i >= 0; i-- {
		n := m.inbox[i]
		if n.RecipientID != recipientID {
			continue
		}
		if !n.Read {
			unread++
		}
		if unreadOnly && n.Read {
			continue
		}
		row := *n
		matched = append(matched, &row)
	}
	return &NotificationPage{Items: page(matched, offset, limit), Total: int64(len(matched)), UnreadCount: unread}, nil
}

func (m *MemoryRepo) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	for _, n := range m.inbox {
		if n.ID == id && n.RecipientID == recipientID {
			t := now()
			n.Read, n.ReadAt = true, &t
			return nil
		}
	}
	return ErrNotFound
}

// Notifications returns a copy of everything delivered so far, oldest first.
func (m *MemoryRepo) Notifications() []Notification {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	out := make([]Notification, 0, len(m.inbox))
	for _, n := range m.inbox {
		out = append(out, *n)
	}
	return out
}
