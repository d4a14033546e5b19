package storage

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, clock, _ := newTestErrorStore(t, fs)

	_, err := store.Record(errors.New("first"), "ping", IDs("g", "u", "m"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = store.Record(errors.New("second"), "help", ContextIDs{})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "errors/broken.json", []byte("{"), 0644))

	var buf bytes.Buffer
	n, err := store.Archive(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := ReadArchive(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	msgs := []string{*recs[0].Msg, *recs[1].Msg}
	assert.ElementsMatch(t, []string{"first", "second"}, msgs)
	for _, rec := range recs {
		assert.Len(t, rec.ErrorID, 32)
		assert.NotEmpty(t, rec.ThisFile)
	}
}

func TestArchiveEmpty(t *testing.T) {
	store, _, _ := newTestErrorStore(t, afero.NewMemMapFs())

	var buf bytes.Buffer
	n, err := store.Archive(&buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err := ReadArchive(&buf)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
