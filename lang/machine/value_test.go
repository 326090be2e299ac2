package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	require.False(t, Bool(false).Truthy())
	require.False(t, Int(0).Truthy())
	require.True(t, Bool(true).Truthy())
	require.True(t, Int(1).Truthy())
	require.True(t, Float(0).Truthy())
	require.True(t, Str("").Truthy())
	require.True(t, None().Truthy())
}

func TestEqualIsRestrictedToSameKind(t *testing.T) {
	require.True(t, Int(1).Equal(Int(1)))
	require.False(t, Int(1).Equal(Int(2)))
	require.True(t, Float(1.5).Equal(Float(1.5)))
	require.True(t, Bool(true).Equal(Bool(true)))
	// Cross-type numeric comparison is false, not an error.
	require.False(t, Int(1).Equal(Float(1)))
	require.False(t, Str("a").Equal(Str("a")))
	require.False(t, None().Equal(None()))
}

func TestUnwrapPassesThroughPlainValues(t *testing.T) {
	require.Equal(t, Int(3), Int(3).Unwrap())
	cell := &HeapedData{v: Int(3)}
	require.Equal(t, Int(3), heaped(cell).Unwrap())
}

func TestFromConstant(t *testing.T) {
	require.Equal(t, None(), FromConstant(nil))
	require.Equal(t, Bool(true), FromConstant(true))
	require.Equal(t, Int(7), FromConstant(int64(7)))
	require.Equal(t, Float(1.5), FromConstant(1.5))
	require.Equal(t, Str("hi"), FromConstant("hi"))
}
