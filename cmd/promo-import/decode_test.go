package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/promo"
)

var ict = time.FixedZone("ICT", 7*60*60)

func TestDecodeCoupon(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    string
		wantErr bool
	}{
		{
			name: "string discount",
			line: `{"code":"summer10","discount":"10","valid_from":"2025-06-01T00:00:00Z","valid_to":"2025-06-30T23:59:59Z","active":true,"extra":1}`,
			want: "10",
		},
		{
			name: "numeric discount",
			line: `{"code":"x","discount":12.5,"valid_from":"2025-06-01T00:00:00Z","valid_to":"2025-06-02T00:00:00Z","active":false}`,
			want: "12.5",
		},
		{name: "missing code", line: `{"discount":"5"}`, wantErr: true},
		{name: "bad time", line: `{"code":"x","valid_from":"yesterday"}`, wantErr: true},
		{name: "not json", line: `code,discount`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := decodeCoupon([]byte(tt.line))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Discount.String())
		})
	}
}

func TestDecodeDiscountCode(t *testing.T) {
	d, err := decodeDiscountCode([]byte(
		`{"code":"dc50k","discount_percentage":null,"discount_amount":50000,"start_date":"2025-06-01","end_date":"2025-06-30"}`,
	), ict)
	require.NoError(t, err)

	assert.False(t, d.DiscountPercentage.Valid)
	require.NotNil(t, d.DiscountAmount)
	assert.Equal(t, money.Money(50000), *d.DiscountAmount)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, ict), d.StartDate)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, ict), d.EndDate)

	d, err = decodeDiscountCode([]byte(`{"code":"pct","discount_percentage":"15","start_date":"2025-06-01","end_date":"2025-06-30"}`), ict)
	require.NoError(t, err)
	assert.True(t, d.DiscountPercentage.Valid)
	assert.Nil(t, d.DiscountAmount)
}

type memRegistry struct {
	mu       sync.Mutex
	coupons  map[string]promo.Coupon
	discount map[string]promo.DiscountCode
	lookups  int
}

func (m *memRegistry) FindByCode(_ context.Context, code string) (*promo.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if c, ok := m.coupons[code]; ok && c.Active {
		return &promo.Code{Code: code, Origin: promo.OriginCoupon}, nil
	}
	return nil, promo.ErrNotFound
}

func (m *memRegistry) UpsertCoupon(_ context.Context, c promo.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.Code] = c
	return nil
}

func (m *memRegistry) UpsertDiscountCode(_ context.Context, d promo.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discount[d.Code] = d
	return nil
}

func writeGz(t *testing.T, lines ...string) string {
	t.Helper()
	var buf bytes.Buffer
	w := pgzip.NewWriter(&buf)
	for _, l := range lines {
		_, err := w.Write([]byte(l + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "export.jsonl.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestImporter_CouponShadowsDiscountCode(t *testing.T) {
	reg := &memRegistry{coupons: map[string]promo.Coupon{}, discount: map[string]promo.DiscountCode{}}
	imp := &importer{reg: reg, loc: ict, workers: 4, coupons: bloom.NewWithEstimates(1000, 0.001)}
	ctx := context.Background()

	coupons := writeGz(t,
		`{"code":"both","discount":"10","valid_from":"2025-06-01T00:00:00Z","valid_to":"2025-06-30T00:00:00Z","active":true}`,
		`{"code":"reversed","discount":"10","valid_from":"2025-06-30T00:00:00Z","valid_to":"2025-06-01T00:00:00Z","active":true}`,
		``,
		`{"code":"pct200","discount":"200","valid_from":"2025-06-01T00:00:00Z","valid_to":"2025-06-30T00:00:00Z","active":true}`,
	)
	var cs stats
	require.NoError(t, imp.importCoupons(ctx, coupons, &cs))
	assert.EqualValues(t, 3, cs.read.Load())
	assert.EqualValues(t, 1, cs.written.Load())
	assert.EqualValues(t, 2, cs.invalid.Load())
	assert.Contains(t, reg.coupons, "BOTH")

	codes := writeGz(t,
		`{"code":"Both","discount_amount":5000,"start_date":"2025-06-01","end_date":"2025-06-30"}`,
		`{"code":"only","discount_amount":5000,"start_date":"2025-06-01","end_date":"2025-06-30"}`,
		`{"code":"none","start_date":"2025-06-01","end_date":"2025-06-30"}`,
	)
	var ds stats
	require.NoError(t, imp.importDiscountCodes(ctx, codes, &ds))
	assert.EqualValues(t, 1, ds.shadowed.Load())
	assert.EqualValues(t, 1, ds.written.Load())
	assert.EqualValues(t, 1, ds.invalid.Load())
	assert.Contains(t, reg.discount, "ONLY")
	assert.NotContains(t, reg.discount, "BOTH")
}
