package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListQuery_Normalise(t *testing.T) {
	tests := []struct {
		name           string
		in             ListQuery
		expectPage     int
		expectLimit    int
		expectedOffset int
	}{
		{name: "Defaults", in: ListQuery{}, expectPage: 1, expectLimit: DefaultPageLimit, expectedOffset: 0},
		{name: "Third page", in: ListQuery{Page: 3, Limit: 10}, expectPage: 3, expectLimit: 10, expectedOffset: 20},
		{name: "Limit capped", in: ListQuery{Page: 1, Limit: 5000}, expectPage: 1, expectLimit: MaxPageLimit, expectedOffset: 0},
		{name: "Huge page clamped", in: ListQuery{Page: math.MaxInt, Limit: MaxPageLimit}, expectPage: MaxPage, expectLimit: MaxPageLimit, expectedOffset: (MaxPage - 1) * MaxPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in.Normalise()

			assert.Equal(t, tt.expectPage, q.Page)
			assert.Equal(t, tt.expectLimit, q.Limit)
			assert.Equal(t, tt.expectedOffset, q.Offset())
			assert.GreaterOrEqual(t, q.Offset(), 0)
		})
	}
}
