package sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMethodDefSigExample(t *testing.T) {
	blob := []byte{0, 1, 1, 0x1D, 0x0E}
	got, err := DecodeMethodDefSig(blob)
	require.NoError(t, err)

	assert.True(t, got.CallingConvention.IsDefault())
	assert.False(t, got.CallingConvention.HasThis())
	assert.True(t, got.Ret.Void)
	require.Len(t, got.Params, 1)

	p := got.Params[0]
	assert.False(t, p.ByRef)
	require.NotNil(t, p.Type)
	assert.Equal(t, ElementTypeSzArray, p.Type.Elem)
	require.NotNil(t, p.Type.ArrayElem)
	assert.Equal(t, ElementTypeString, p.Type.ArrayElem.Elem)
	assert.Empty(t, p.Type.Mods)
}

func TestDecodeMethodDefSigHasThis(t *testing.T) {
	// HAS_THIS | DEFAULT, one param (int), void return: void(int) with this.
	blob := []byte{0x20, 1, 1, 0x08}
	got, err := DecodeMethodDefSig(blob)
	require.NoError(t, err)
	assert.True(t, got.CallingConvention.HasThis())
	require.Len(t, got.Params, 1)
	assert.Equal(t, ElementTypeI4, got.Params[0].Type.Elem)
}

func TestDecodeTypeUnsupportedElement(t *testing.T) {
	// 0x12 is CLASS, outside the required subset.
	_, _, err := decodeType([]byte{0x12})
	assert.ErrorIs(t, err, ErrUnsupportedSignature)
}

func TestDecodeTypeByRefReturn(t *testing.T) {
	// calling_convention, param_count=0, ret: Byref I4.
	blob := []byte{0, 0, 0x10, 0x08}
	got, err := DecodeMethodDefSig(blob)
	require.NoError(t, err)
	assert.True(t, got.Ret.ByRef)
	require.NotNil(t, got.Ret.Type)
	assert.Equal(t, ElementTypeI4, got.Ret.Type.Elem)
}
