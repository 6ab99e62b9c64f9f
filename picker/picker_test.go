package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
)

func TestOpenCarriesCurrentImage(t *testing.T) {
	p := New(catalog.Default)
	assert.Equal(t, State{}, p.State())

	p.Open(catalog.None)
	assert.Equal(t, State{Open: true}, p.State())
	assert.False(t, p.State().CanConfirm())

	p.Cancel()
	p.Open(12)
	assert.Equal(t, State{Open: true, Tentative: 12}, p.State())
	assert.True(t, p.State().CanConfirm())
}

func TestSelectKeepsDialogOpen(t *testing.T) {
	p := New(catalog.Default)
	require.ErrorIs(t, p.Select(3), ErrNotOpen)

	p.Open(catalog.None)
	require.NoError(t, p.Select(3))
	require.NoError(t, p.Select(900))
	assert.Equal(t, State{Open: true, Tentative: 900}, p.State())

	require.ErrorIs(t, p.Select(1001), ErrUnknownImage)
	require.ErrorIs(t, p.Select(0), ErrUnknownImage)
	assert.Equal(t, catalog.ImageID(900), p.State().Tentative)
}

func TestConfirm(t *testing.T) {
	p := New(catalog.Default)
	_, err := p.Confirm()
	require.ErrorIs(t, err, ErrNotOpen)

	p.Open(catalog.None)
	_, err = p.Confirm()
	require.ErrorIs(t, err, ErrNoSelection)
	assert.True(t, p.State().Open, "empty confirm must leave the dialog open")

	require.NoError(t, p.Select(42))
	id, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, catalog.ImageID(42), id)
	assert.Equal(t, State{}, p.State())
}

func TestCancelDropsTentative(t *testing.T) {
	p := New(catalog.Default)
	p.Open(5)
	require.NoError(t, p.Select(6))
	p.Cancel()
	assert.Equal(t, State{}, p.State())

	p.Open(5)
	assert.Equal(t, catalog.ImageID(5), p.State().Tentative)
}
