package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"created_to_paid", StatusCreated, StatusPaid, true},
		{"created_to_cancelled", StatusCreated, StatusCancelled, true},
		{"paid_to_cancelled", StatusPaid, StatusCancelled, true},
		{"paid_to_paid", StatusPaid, StatusPaid, false},
		{"paid_to_created", StatusPaid, StatusCreated, false},
		{"cancelled_to_paid", StatusCancelled, StatusPaid, false},
		{"cancelled_to_created", StatusCancelled, StatusCreated, false},
		{"cancelled_to_cancelled", StatusCancelled, StatusCancelled, false},
		{"unknown_from", Status("SHIPPED"), StatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
