package promo

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/money"
)

type mockRegistry struct {
	codes   map[string]*Code
	err     error
	lookups []string
}

func (m *mockRegistry) FindByCode(_ context.Context, code string) (*Code, error) {
	m.lookups = append(m.lookups, code)
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func TestResolver_Resolve(t *testing.T) {
	registry := &mockRegistry{codes: map[string]*Code{
		"SAVE10": percentCode("10"),
		"FLAT5K": fixedCode(5000),
		"OLD": {
			Code: "OLD", Kind: KindPercentage, Percentage: d("50"),
			ValidFrom: yesterday.Add(-48 * time.Hour), ValidTo: yesterday,
		},
	}}

	tests := []struct {
		name       string
		code       string
		subtotal   money.Money
		wantAmount money.Money
		wantErr    error
	}{
		{name: "percentage", code: "SAVE10", subtotal: 200000, wantAmount: 20000},
		{name: "lookup is case-insensitive", code: "  save10 ", subtotal: 200000, wantAmount: 20000},
		{name: "fixed", code: "FLAT5K", subtotal: 200000, wantAmount: 5000},
		{name: "unknown code", code: "BOGUS", subtotal: 200000, wantErr: ErrNotFound},
		{name: "blank code", code: "   ", subtotal: 200000, wantErr: ErrNotFound},
		{name: "expired code", code: "old", subtotal: 200000, wantErr: ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(registry)

			got, err := r.Resolve(context.Background(), tt.code, tt.subtotal, fixedNow)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, got.Amount)
		})
	}
}

func TestResolver_NormalizesBeforeLookup(t *testing.T) {
	registry := &mockRegistry{codes: map[string]*Code{"SAVE10": percentCode("10")}}
	r := NewResolver(registry)

	_, err := r.Lookup(context.Background(), " Save10")
	require.NoError(t, err)
	assert.Equal(t, []string{"SAVE10"}, registry.lookups)
}

func TestResolver_StorageError(t *testing.T) {
	r := NewResolver(&mockRegistry{err: errors.New("connection reset")})

	_, err := r.Resolve(context.Background(), "SAVE10", 1000, fixedNow)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "lookup promo code")
}
