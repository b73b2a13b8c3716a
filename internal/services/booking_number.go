package services

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/helpers"
)

var numberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewBookingNumber builds TRV-<YYMMDD>-<initials>-<6 random chars>. The store's unique
// index is the final word; callers retry with a fresh number on collision.
func NewBookingNumber(firstName, lastName string, at time.Time) string {
	id := uuid.New()
	suffix := numberEncoding.EncodeToString(id[:4])[:6]
	return fmt.Sprintf("TRV-%s-%s-%s", at.UTC().Format("060102"), helpers.Initials(firstName, lastName), suffix)
}
