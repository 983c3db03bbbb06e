package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	got := Merge([]Reservation{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})

	assert.Equal(t, []Reservation{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 4},
	}, got)
	assert.Equal(t, []string{"a", "b"}, IDs(got))
}

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		levels    map[string]int
		reqs      []Reservation
		want      map[string]int
		wantShort *InsufficientStockError
	}{
		{
			name:   "all lines covered",
			levels: map[string]int{"a": 5, "b": 1},
			reqs:   []Reservation{{ProductID: "a", Quantity: 3}, {ProductID: "b", Quantity: 1}},
			want:   map[string]int{"a": 2, "b": 0},
		},
		{
			name:   "exact stock is enough",
			levels: map[string]int{"a": 2},
			reqs:   []Reservation{{ProductID: "a", Quantity: 2}},
			want:   map[string]int{"a": 0},
		},
		{
			name:      "one short line fails the whole unit",
			levels:    map[string]int{"a": 5, "b": 1},
			reqs:      []Reservation{{ProductID: "a", Quantity: 3}, {ProductID: "b", Quantity: 2}},
			wantShort: &InsufficientStockError{ProductID: "b", Available: 1, Requested: 2},
		},
		{
			name:      "sizes of one product share the counter",
			levels:    map[string]int{"a": 3},
			reqs:      []Reservation{{ProductID: "a", Quantity: 2}, {ProductID: "a", Quantity: 2}},
			wantShort: &InsufficientStockError{ProductID: "a", Available: 3, Requested: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := make(map[string]int, len(tt.levels))
			for k, v := range tt.levels {
				before[k] = v
			}

			got, err := Apply(tt.levels, tt.reqs)

			assert.Equal(t, before, tt.levels, "input levels must not be mutated")
			if tt.wantShort != nil {
				var short *InsufficientStockError
				require.ErrorAs(t, err, &short)
				assert.Equal(t, tt.wantShort, short)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_UnknownProduct(t *testing.T) {
	_, err := Apply(map[string]int{}, []Reservation{{ProductID: "ghost", Quantity: 1}})

	var unknown *UnknownProductError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.ProductID)
}

func TestApply_NonPositiveQuantity(t *testing.T) {
	_, err := Apply(map[string]int{"a": 1}, []Reservation{{ProductID: "a", Quantity: 0}})
	require.Error(t, err)
}

func TestRestore(t *testing.T) {
	got := Restore(map[string]int{"a": 0, "b": 4}, []Reservation{
		{ProductID: "a", Quantity: 3},
		{ProductID: "b", Quantity: 1},
	})
	assert.Equal(t, map[string]int{"a": 3, "b": 5}, got)
}

func TestRestore_Saturates(t *testing.T) {
	maxLevel := int(^uint(0) >> 1)
	got := Restore(map[string]int{"a": maxLevel - 1}, []Reservation{{ProductID: "a", Quantity: 10}})
	assert.Equal(t, maxLevel, got["a"])
}

func TestInsufficientStockError_Message(t *testing.T) {
	err := &InsufficientStockError{ProductID: "p1", Available: 2, Requested: 5}
	assert.Equal(t, "insufficient stock for product p1: available 2, requested 5", err.Error())
}
