package config

import (
	"testing"

	"github.com/askorykh/bptreefs/pager"
	"github.com/stretchr/testify/require"
)

func TestResolveAppliesDefaults(t *testing.T) {
	o, err := Resolve(0, 0)
	require.NoError(t, err)
	require.Equal(t, pager.DefaultLeafOrder, o.Leaf)
	require.Equal(t, pager.DefaultInternalOrder, o.Internal)
}

func TestResolveRejectsOutOfBoundsOrders(t *testing.T) {
	_, err := Resolve(2, 0)
	require.ErrorIs(t, err, pager.ErrBadOrder)

	_, err = Resolve(0, 300)
	require.ErrorIs(t, err, pager.ErrBadOrder)
}

func TestResolvePassesThroughValidOrders(t *testing.T) {
	o, err := Resolve(5, 10)
	require.NoError(t, err)
	require.Equal(t, int32(5), o.Leaf)
	require.Equal(t, int32(10), o.Internal)
}
