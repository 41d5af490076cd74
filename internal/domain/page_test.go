package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/places-api/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestNewPaginationParams(t *testing.T) {
	tests := []struct {
		name      string
		page      *int
		limit     *int
		wantPage  int
		wantLimit int
	}{
		{"defaults", nil, nil, 1, domain.DefaultPageSize},
		{"explicit", intPtr(3), intPtr(25), 3, 25},
		{"limit capped", nil, intPtr(500), 1, domain.MaxPageSize},
		{"zero page falls back", intPtr(0), nil, 1, domain.DefaultPageSize},
		{"negative limit falls back", nil, intPtr(-4), 1, domain.DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.NewPaginationParams(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
		})
	}
}

func TestPaginationParams_Offset(t *testing.T) {
	assert.Equal(t, 0, domain.PaginationParams{Page: 1, Limit: 15}.Offset())
	assert.Equal(t, 30, domain.PaginationParams{Page: 3, Limit: 15}.Offset())
}
