package artwork

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(t.TempDir(), func(artworkKey string) string {
		return "https://cdn.example.com/artwork/" + artworkKey
	})
}

func TestCache_LoadFetchesOnceThenHitsDisk(t *testing.T) {
	defer gock.Off()

	gock.New("https://cdn.example.com").
		Get("/artwork/covers/1").
		Times(1).
		Reply(200).
		Body(bytes.NewReader(pngBytes(t)))

	cache := newTestCache(t)

	// 1. First load fetches, writes the cover, and extracts colours
	art, err := cache.Load("covers/1")
	require.NoError(t, err)
	assert.Equal(t, "png", art.Extension)
	assert.FileExists(t, art.Path)
	require.NotEmpty(t, art.DominantColours)
	assert.Equal(t, "#ff0000", art.DominantColours[0])

	// 2. Second load is served from disk; the single mock is spent
	again, err := cache.Load("covers/1")
	require.NoError(t, err)
	assert.Equal(t, art.Path, again.Path)
}

func TestCache_LoadRejectsNonImage(t *testing.T) {
	defer gock.Off()

	gock.New("https://cdn.example.com").
		Get("/artwork/covers/2").
		Reply(200).
		BodyString("<html>not a cover</html>")

	cache := newTestCache(t)
	_, err := cache.Load("covers/2")
	assert.Error(t, err)
}

func TestCache_LoadSurfacesBadStatus(t *testing.T) {
	defer gock.Off()

	gock.New("https://cdn.example.com").
		Get("/artwork/covers/3").
		Reply(404)

	cache := newTestCache(t)
	_, err := cache.Load("covers/3")
	assert.Error(t, err)
}

func TestCleanOlderThan(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, func(string) string { return "" })

	stale := filepath.Join(dir, "cover.abc.png")
	fresh := filepath.Join(dir, "cover.def.png")
	unrelated := filepath.Join(dir, "state.db")
	for _, path := range []string{stale, fresh, unrelated} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	cache.CleanOlderThan(24 * time.Hour)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	// Only cover files are subject to cleanup
	assert.FileExists(t, unrelated)
}
