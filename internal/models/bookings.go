package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingCompleted  BookingStatus = "completed"
	BookingInProgress BookingStatus = "inProgress"
)

// ActiveBookingStatuses hold their dates against other bookings.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

// IsProtected statuses can only be deleted by an administrator.
func (s BookingStatus) IsProtected() bool {
	return s == BookingConfirmed || s == BookingInProgress
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

type Booking struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BookingNumber  string        `gorm:"size:40;uniqueIndex;not null" json:"booking_number"`
	Status         BookingStatus `gorm:"size:20;not null;index" json:"status"`
	StartDate      time.Time     `gorm:"type:date;not null;index" json:"start_date"`
	EndDate        time.Time     `gorm:"type:date;not null;index" json:"end_date"`
	Duration       int           `gorm:"not null" json:"duration"`
	Adults         int           `gorm:"not null;default:0" json:"adults"`
	Children       int           `gorm:"not null;default:0" json:"children"`
	Infants        int           `gorm:"not null;default:0" json:"infants"`
	TotalTravelers int           `gorm:"not null;check:total_travelers >= 1" json:"total_travelers"`

	TotalAmount    float64       `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	Currency       string        `gorm:"size:3;not null;default:USD" json:"currency"`
	PaymentStatus  PaymentStatus `gorm:"size:20;not null;default:pending" json:"payment_status"`
	DepositAmount  float64       `gorm:"type:numeric(12,2);not null;default:0" json:"deposit_amount"`
	DepositPaid    bool          `gorm:"not null;default:false" json:"deposit_paid"`
	BalanceDueDate *time.Time    `gorm:"type:date" json:"balance_due_date,omitempty"`

	SpecialRequests StringList `gorm:"type:jsonb" json:"special_requests,omitempty"`

	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	DestinationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"destination_id"`
	GuideID       *uuid.UUID `gorm:"type:uuid;index" json:"guide_id,omitempty"`

	Customer    *Customer    `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	Destination *Destination `gorm:"foreignKey:DestinationID;constraint:OnDelete:RESTRICT" json:"destination,omitempty"`
	Guide       *Guide       `gorm:"foreignKey:GuideID;constraint:OnDelete:SET NULL" json:"guide,omitempty"`

	Accommodations   []Accommodation      `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"accommodations,omitempty"`
	Transportation   []Transportation     `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"transportation,omitempty"`
	Activities       []Activity           `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
	EquipmentRentals []EquipmentRental    `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"equipment_rentals,omitempty"`
	Transactions     []PaymentTransaction `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
	Documents        []Document           `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Notes            []Note               `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
	EmergencyContact *EmergencyContact    `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"emergency_contact,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Targets lists the destination and, when assigned, the guide this booking occupies.
func (b *Booking) Targets() []Target {
	out := []Target{DestinationTarget(b.DestinationID)}
	if b.GuideID != nil {
		out = append(out, GuideTarget(*b.GuideID))
	}
	return out
}

func (b *Booking) Occupies(t Target) bool {
	switch t.Kind {
	case TargetDestination:
		return b.DestinationID == t.ID
	case TargetGuide:
		return b.GuideID != nil && *b.GuideID == t.ID
	}
	return false
}

type Accommodation struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID          uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Name               string    `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Type               string    `gorm:"size:50" json:"type,omitempty" validate:"omitempty,max=50"`
	Address            string    `json:"address,omitempty"`
	CheckIn            time.Time `json:"check_in" validate:"required"`
	CheckOut           time.Time `json:"check_out" validate:"required,gtefield=CheckIn"`
	ConfirmationNumber string    `gorm:"size:100" json:"confirmation_number,omitempty"`
	Cost               float64   `gorm:"type:numeric(12,2)" json:"cost" validate:"gte=0"`
}

type Transportation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"booking_id"`
	Type          string     `gorm:"size:30;not null" json:"type" validate:"required,oneof=flight train bus car boat transfer other"`
	Provider      string     `gorm:"size:100" json:"provider,omitempty"`
	Origin        string     `gorm:"size:200;not null" json:"origin" validate:"required"`
	Destination   string     `gorm:"size:200;not null" json:"destination" validate:"required"`
	DepartureTime time.Time  `json:"departure_time" validate:"required"`
	ArrivalTime   *time.Time `json:"arrival_time,omitempty"`
	Reference     string     `gorm:"size:100" json:"reference,omitempty"`
	Cost          float64    `gorm:"type:numeric(12,2)" json:"cost" validate:"gte=0"`
}

func (Transportation) TableName() string { return "transportation_legs" }

type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID   uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Name        string    `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `gorm:"size:200" json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Cost        float64   `gorm:"type:numeric(12,2)" json:"cost" validate:"gte=0"`
}

type EquipmentRental struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Item      string    `gorm:"size:200;not null" json:"item" validate:"required,max=200"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity" validate:"gte=1"`
	Cost      float64   `gorm:"type:numeric(12,2)" json:"cost" validate:"gte=0"`
}

type PaymentTransaction struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID     `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount    float64       `gorm:"type:numeric(12,2);not null" json:"amount" validate:"gt=0"`
	Currency  string        `gorm:"size:3;not null" json:"currency" validate:"omitempty,len=3"`
	Method    string        `gorm:"size:30" json:"method,omitempty" validate:"omitempty,oneof=card cash bank_transfer mobile_money other"`
	Status    PaymentStatus `gorm:"size:20;not null" json:"status" validate:"omitempty,oneof=pending partial paid refunded failed"`
	Reference string        `gorm:"size:100" json:"reference,omitempty"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
}

func (PaymentTransaction) TableName() string { return "booking_transactions" }

type Document struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Name      string    `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Type      string    `gorm:"size:50" json:"type,omitempty"`
	URL       string    `json:"url" validate:"required,url"`
}

type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Content   string    `gorm:"not null" json:"content" validate:"required,max=5000"`
	Author    string    `gorm:"size:200" json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EmergencyContact struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	Name         string    `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Relationship string    `gorm:"size:100" json:"relationship,omitempty"`
	Phone        string    `gorm:"size:40;not null" json:"phone" validate:"required,max=40"`
	Email        string    `gorm:"size:255" json:"email,omitempty" validate:"omitempty,email"`
}

// BookingChildren groups the child collections. A nil slice means "leave as is"
// on update, an empty one clears the collection.
type BookingChildren struct {
	Accommodations   []Accommodation      `json:"accommodations" validate:"omitempty,dive"`
	Transportation   []Transportation     `json:"transportation" validate:"omitempty,dive"`
	Activities       []Activity           `json:"activities" validate:"omitempty,dive"`
	EquipmentRentals []EquipmentRental    `json:"equipment_rentals" validate:"omitempty,dive"`
	Transactions     []PaymentTransaction `json:"transactions" validate:"omitempty,dive"`
	Documents        []Document           `json:"documents" validate:"omitempty,dive"`
	Notes            []Note               `json:"notes" validate:"omitempty,dive"`
	EmergencyContact *EmergencyContact    `json:"emergency_contact"`
}

// Attach stamps fresh ids and the owning booking id on every row.
func (c *BookingChildren) Attach(bookingID uuid.UUID, currency string, now time.Time) {
	for i := range c.Accommodations {
		c.Accommodations[i].ID, c.Accommodations[i].BookingID = uuid.New(), bookingID
	}
	for i := range c.Transportation {
		c.Transportation[i].ID, c.Transportation[i].BookingID = uuid.New(), bookingID
	}
	for i := range c.Activities {
		c.Activities[i].ID, c.Activities[i].BookingID = uuid.New(), bookingID
	}
	for i := range c.EquipmentRentals {
		c.EquipmentRentals[i].ID, c.EquipmentRentals[i].BookingID = uuid.New(), bookingID
	}
	for i := range c.Transactions {
		tx := &c.Transactions[i]
		tx.ID, tx.BookingID = uuid.New(), bookingID
		if tx.Currency == "" {
			tx.Currency = currency
		}
		if tx.Status == "" {
			tx.Status = PaymentPending
		}
	}
	for i := range c.Documents {
		c.Documents[i].ID, c.Documents[i].BookingID = uuid.New(), bookingID
	}
	for i := range c.Notes {
		c.Notes[i].ID, c.Notes[i].BookingID = uuid.New(), bookingID
		if c.Notes[i].CreatedAt.IsZero() {
			c.Notes[i].CreatedAt = now
		}
	}
	if c.EmergencyContact != nil {
		c.EmergencyContact.ID, c.EmergencyContact.BookingID = uuid.New(), bookingID
	}
}

// Apply copies the present collections onto b.
func (c *BookingChildren) Apply(b *Booking) {
	if c.Accommodations != nil {
		b.Accommodations = c.Accommodations
	}
	if c.Transportation != nil {
		b.Transportation = c.Transportation
	}
	if c.Activities != nil {
		b.Activities = c.Activities
	}
	if c.EquipmentRentals != nil {
		b.EquipmentRentals = c.EquipmentRentals
	}
	if c.Transactions != nil {
		b.Transactions = c.Transactions
	}
	if c.Documents != nil {
		b.Documents = c.Documents
	}
	if c.Notes != nil {
		b.Notes = c.Notes
	}
	if c.EmergencyContact != nil {
		b.EmergencyContact = c.EmergencyContact
	}
}

func (c *BookingChildren) IsEmpty() bool {
	return c.Accommodations == nil && c.Transportation == nil && c.Activities == nil &&
		c.EquipmentRentals == nil && c.Transactions == nil && c.Documents == nil &&
		c.Notes == nil && c.EmergencyContact == nil
}

type PaymentInput struct {
	TotalAmount    float64       `json:"total_amount" validate:"gte=0"`
	Currency       string        `json:"currency" validate:"omitempty,len=3"`
	PaymentStatus  PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending partial paid refunded failed"`
	DepositAmount  float64       `json:"deposit_amount" validate:"gte=0"`
	DepositPaid    bool          `json:"deposit_paid"`
	BalanceDueDate string        `json:"balance_due_date" validate:"omitempty,datetime=2006-01-02"`
}

type CreateBookingInput struct {
	Customer      *CustomerInput `json:"customer" validate:"required"`
	DestinationID uuid.UUID      `json:"destination_id" validate:"required"`
	GuideID       *uuid.UUID     `json:"guide_id"`
	Status        BookingStatus  `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed inProgress"`
	StartDate     string         `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string         `json:"end_date" validate:"required,datetime=2006-01-02"`
	Adults        int            `json:"adults" validate:"gte=0,lte=500"`
	Children      int            `json:"children" validate:"gte=0,lte=500"`
	Infants       int            `json:"infants" validate:"gte=0,lte=500"`
	Payment       PaymentInput   `json:"payment"`

	SpecialRequests []string `json:"special_requests" validate:"omitempty,dive,max=500"`

	BookingChildren
}

type PaymentUpdateInput struct {
	TotalAmount    *float64       `json:"total_amount" validate:"omitempty,gte=0"`
	Currency       *string        `json:"currency" validate:"omitempty,len=3"`
	PaymentStatus  *PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending partial paid refunded failed"`
	DepositAmount  *float64       `json:"deposit_amount" validate:"omitempty,gte=0"`
	DepositPaid    *bool          `json:"deposit_paid"`
	BalanceDueDate *string        `json:"balance_due_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateBookingInput struct {
	Customer      *CustomerInput      `json:"customer"`
	DestinationID *uuid.UUID          `json:"destination_id"`
	GuideID       *uuid.UUID          `json:"guide_id"`
	RemoveGuide   bool                `json:"remove_guide" validate:"excluded_with=GuideID"`
	Status        *BookingStatus      `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed inProgress"`
	StartDate     *string             `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       *string             `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Adults        *int                `json:"adults" validate:"omitempty,gte=0,lte=500"`
	Children      *int                `json:"children" validate:"omitempty,gte=0,lte=500"`
	Infants       *int                `json:"infants" validate:"omitempty,gte=0,lte=500"`
	Payment       *PaymentUpdateInput `json:"payment"`

	SpecialRequests []string `json:"special_requests" validate:"omitempty,dive,max=500"`

	BookingChildren
}

var BookingSortColumns = map[string]string{
	"createdAt":     "created_at",
	"startDate":     "start_date",
	"endDate":       "end_date",
	"totalAmount":   "total_amount",
	"status":        "status",
	"bookingNumber": "booking_number",
}

type BookingFilter struct {
	CustomerID    *uuid.UUID
	DestinationID *uuid.UUID
	GuideID       *uuid.UUID
	Status        BookingStatus
	From          *time.Time
	To            *time.Time
	SortColumn    string
	SortDesc      bool
	Limit         int
	Offset        int
}

// InRange reports whether b starts in, ends in, or spans the filter's window.
func (f BookingFilter) InRange(b *Booking) bool {
	switch {
	case f.From != nil && f.To != nil:
		startsIn := !b.StartDate.Before(*f.From) && !b.StartDate.After(*f.To)
		endsIn := !b.EndDate.Before(*f.From) && !b.EndDate.After(*f.To)
		spans := !b.StartDate.After(*f.From) && !b.EndDate.Before(*f.To)
		return startsIn || endsIn || spans
	case f.From != nil:
		return !b.EndDate.Before(*f.From)
	case f.To != nil:
		return !b.StartDate.After(*f.To)
	}
	return true
}

// ActiveBookingQuery selects pending/confirmed bookings of one target that may overlap a window.
type ActiveBookingQuery struct {
	Target    Target
	StartDate time.Time
	EndDate   time.Time
	ExcludeID uuid.UUID
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type BookingStats struct {
	Total    int64                   `json:"total"`
	ByStatus map[BookingStatus]int64 `json:"by_status"`
	Revenue  float64                 `json:"revenue"`
	Year     int                     `json:"year"`
	Monthly  []MonthlyCount          `json:"monthly"`
}
