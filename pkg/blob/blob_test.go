package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir(), "http://localhost:8000/static/")

	ok, err := d.Exists(ctx, "cache/locations.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = d.Read(ctx, "cache/locations.json")
	assert.ErrorIs(t, err, ErrNotExist)

	url, err := d.Write(ctx, "cache/locations.json", []byte(`{"count":0}`), WriteOptions{ContentType: "application/json"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/static/cache/locations.json", url)

	data, err := d.Read(ctx, "cache/locations.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0}`, string(data))

	ok, err = d.Exists(ctx, "cache/locations.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirReplacesWholeObject(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir(), "")

	_, err := d.Write(ctx, "a.json", []byte("a much longer first version"), WriteOptions{})
	require.NoError(t, err)
	_, err = d.Write(ctx, "a.json", []byte("short"), WriteOptions{})
	require.NoError(t, err)

	data, err := d.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestDirStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root, "")
	name, err := d.file("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, root+"/etc/passwd", name)

	_, err = d.file("/")
	assert.Error(t, err)
}
