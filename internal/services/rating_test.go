package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    float64
		count   int
	}{
		{"none", nil, 0, 0},
		{"single", []int{5}, 5, 1},
		{"exact", []int{5, 3}, 4, 2},
		{"rounds down", []int{5, 4, 4}, 4.3, 3},
		{"rounds up", []int{5, 5, 4}, 4.7, 3},
		{"half", []int{4, 5, 5, 4}, 4.5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := AverageRating(tt.ratings)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, count)
		})
	}
}
