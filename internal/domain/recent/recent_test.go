package recent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPush(t *testing.T) {
	tests := []struct {
		name string
		list []string
		id   string
		want []string
	}{
		{name: "empty", id: "a", want: []string{"a"}},
		{name: "new goes first", list: []string{"a", "b"}, id: "c", want: []string{"c", "a", "b"}},
		{name: "existing moves to front", list: []string{"a", "b", "c"}, id: "c", want: []string{"c", "a", "b"}},
		{name: "already first", list: []string{"a", "b"}, id: "a", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Push(tt.list, tt.id))
		})
	}
}

func TestPush_CapsAtLimit(t *testing.T) {
	var list []string
	for i := range Limit + 5 {
		list = Push(list, fmt.Sprintf("p%d", i))
	}

	assert.Len(t, list, Limit)
	assert.Equal(t, fmt.Sprintf("p%d", Limit+4), list[0])
	assert.Equal(t, "p5", list[Limit-1])
}
