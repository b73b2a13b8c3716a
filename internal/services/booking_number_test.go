package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var bookingNumberPattern = regexp.MustCompile(`^TRV-\d{6}-[A-Z]+-[A-Z2-7]{6}$`)

func TestNewBookingNumber(t *testing.T) {
	at := time.Date(2024, 3, 9, 22, 15, 0, 0, time.UTC)

	n := NewBookingNumber("kofi", "Mensah", at)
	assert.Regexp(t, bookingNumberPattern, n)
	assert.Contains(t, n, "TRV-240309-KM-")

	assert.Contains(t, NewBookingNumber("", "", at), "-X-")
	assert.Contains(t, NewBookingNumber(" ", "Élodie", at), "-É-")
}

func TestNewBookingNumberIsRandomized(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool)
	for range 200 {
		n := NewBookingNumber("Ama", "Owusu", at)
		assert.False(t, seen[n], "duplicate booking number %s", n)
		seen[n] = true
	}
}
