package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientOrderIdRejectsEmpty(t *testing.T) {
	_, err := NewClientOrderId("")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestNewClientOrderIdRejectsControlCharacters(t *testing.T) {
	_, err := NewClientOrderId("abc\x00def")
	assert.ErrorIs(t, err, ErrControlCharacter)
}

func TestHashIsStableAcrossInstances(t *testing.T) {
	a, err := NewClientOrderId("order-1")
	require.NoError(t, err)
	b, err := NewClientOrderId("order-1")
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHashDiffersForDifferentValues(t *testing.T) {
	a, err := NewClientOrderId("order-1")
	require.NoError(t, err)
	b, err := NewClientOrderId("order-2")
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash(), b.Hash())
}
