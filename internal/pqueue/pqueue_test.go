package pqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/pqueue"
)

func TestExtractMinOrder(t *testing.T) {
	q := pqueue.New()
	q.Insert("c", 3)
	q.Insert("a", 1)
	q.Insert("b", 2)

	var order []string
	for !q.Empty() {
		data, _ := q.ExtractMin()
		order = append(order, data)
	}
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestDecreaseKeyReordersMinimum(t *testing.T) {
	q := pqueue.New()
	ha := q.Insert("a", 10)
	q.Insert("b", 5)

	q.DecreaseKey(ha, 1)
	data, key := q.Minimum()
	require.Equal(t, "a", data)
	require.Equal(t, 1.0, key)
}

func TestDecreaseKeyNonDecreasingPanics(t *testing.T) {
	q := pqueue.New()
	h := q.Insert("a", 10)

	require.Panics(t, func() {
		q.DecreaseKey(h, 10)
	})
	require.Panics(t, func() {
		q.DecreaseKey(h, 20)
	})
}

func TestEmpty(t *testing.T) {
	q := pqueue.New()
	require.True(t, q.Empty())
	q.Insert("x", 1)
	require.False(t, q.Empty())
	q.ExtractMin()
	require.True(t, q.Empty())
}
