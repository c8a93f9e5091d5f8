package storage

import (
	"os"
	"path/filepath"
	"testing"

	errs "skytally/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPostsArray(t *testing.T) {
	path := writeFile(t, "posts.json", `[
		{"uri": "at://1", "repost_count": 2, "like_count": 5, "record": {"createdAt": "2024-05-01T10:00:00Z"}},
		{"uri": "at://2", "repostCount": 1}
	]`)

	ds, err := LoadPosts(path)

	require.NoError(t, err)
	require.Len(t, ds.Items, 2)
	assert.Equal(t, 2, ds.Items[0].RepostCount)
	assert.Equal(t, 5, ds.Items[0].LikeCount)
	assert.Equal(t, 1, ds.Items[1].RepostCount)
	assert.Empty(t, ds.Malformed)
	assert.Equal(t, path, ds.Path)
}

func TestLoadSavedPage(t *testing.T) {
	path := writeFile(t, "feed.json", `{"feed": [{"post": {"author": {"handle": "alice.test"}}}], "cursor": "abc"}`)

	ds, err := LoadFeed(path)

	require.NoError(t, err)
	require.Len(t, ds.Items, 1)
	assert.Equal(t, "alice.test", ds.Items[0].Post.Author.Handle)
}

func TestLoadJSONLines(t *testing.T) {
	path := writeFile(t, "likes.jsonl", `{"actor": {"handle": "a.test"}, "createdAt": "2024-05-01T10:00:00Z"}

{"actor": {"handle": "b.test"}, "createdAt": "2024-05-01T10:01:00Z"}
not json
`)

	ds, err := LoadLikes(path)

	require.NoError(t, err)
	require.Len(t, ds.Items, 2)
	assert.Equal(t, "b.test", ds.Items[1].Actor.Handle)
	assert.Equal(t, []int{2}, ds.Malformed)
}

func TestLoadSkipsMalformedEntries(t *testing.T) {
	path := writeFile(t, "posts.json", `[{"uri": "at://1"}, "oops", {"uri": 7}, {"uri": "at://4"}]`)

	ds, err := LoadPosts(path)

	require.NoError(t, err)
	assert.Len(t, ds.Items, 2)
	assert.Equal(t, []int{1, 2}, ds.Malformed)
}

func TestLoadEmptyFile(t *testing.T) {
	ds, err := LoadPosts(writeFile(t, "empty.json", "  \n"))

	require.NoError(t, err)
	assert.Empty(t, ds.Items)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadPosts(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadPosts(writeFile(t, "bad.json", `"just a string"`))
	assert.True(t, errs.Is(err, errs.KindParsing))

	_, err = LoadPosts(writeFile(t, "badfield.json", `{"posts": {"uri": "x"}}`))
	assert.True(t, errs.Is(err, errs.KindParsing))

	_, err = LoadPosts(writeFile(t, "truncated.json", `[{"uri": "x"}`))
	assert.True(t, errs.Is(err, errs.KindParsing))
}
