package session

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	store := NewMemStore()

	_, err := store.Get("absent")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set("entry", "value"))

	v, err := store.Get("entry")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	require.NoError(t, store.Set("entry", "replaced"))

	v, err = store.Get("entry")
	require.NoError(t, err)
	assert.Equal(t, "replaced", v)

	require.NoError(t, store.Delete("entry"))
	_, err = store.Get("entry")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent entry is not an error.
	require.NoError(t, store.Delete("entry"))
}

func TestLoadOrCreateMasterKey_GeneratesOnce(t *testing.T) {
	store := NewMemStore()

	first, err := loadOrCreateMasterKey(store)
	require.NoError(t, err)
	require.Len(t, first, masterKeyLen)

	second, err := loadOrCreateMasterKey(store)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated loads must return the persisted key")

	stored, err := store.Get(MasterKeyEntry)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(stored)
	require.NoError(t, err)
	assert.Equal(t, first, decoded)
}

func TestLoadOrCreateMasterKey_RejectsCorruptEntry(t *testing.T) {
	t.Run("not base64", func(t *testing.T) {
		store := NewMemStore()
		require.NoError(t, store.Set(MasterKeyEntry, "%%% not base64 %%%"))

		_, err := loadOrCreateMasterKey(store)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base64")
	})

	t.Run("wrong length", func(t *testing.T) {
		store := NewMemStore()
		short := base64.StdEncoding.EncodeToString([]byte("too short"))
		require.NoError(t, store.Set(MasterKeyEntry, short))

		_, err := loadOrCreateMasterKey(store)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wrong length")
	})
}
