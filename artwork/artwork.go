package artwork

import (
	"bytes"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	color_extractor "github.com/marekm4/color-extractor"

	"github.com/earshot-audio/earshot/utils"
)

// Artwork is a fetched cover: where it lives on disk plus the dominant
// colours the UI tints itself with.
type Artwork struct {
	Path            string   `json:"path"`
	Extension       string   `json:"extension"`
	DominantColours []string `json:"dominant_colours"`
}

// Cache fetches show artwork by key and keeps it on disk so a feed full
// of clips from the same few shows doesn't refetch covers endlessly.
type Cache struct {
	storageDir string
	assetURL   func(artworkKey string) string
	client     *http.Client
}

func NewCache(storageDir string, assetURL func(string) string) *Cache {
	return &Cache{
		storageDir: storageDir,
		assetURL:   assetURL,
		client:     utils.NewHTTPClient(),
	}
}

// Load returns the cached artwork for a key, fetching and extracting
// colours on first sight.
func (c *Cache) Load(artworkKey string) (Artwork, error) {
	guid := keyToGUID(artworkKey)
	if art, err := c.loadLocal(guid); err == nil {
		return art, nil
	}

	body, extension, colours, err := c.fetch(artworkKey)
	if err != nil {
		return Artwork{}, err
	}

	art := Artwork{
		Path:            filepath.Join(c.storageDir, fmt.Sprintf("cover.%s.%s", guid, extension)),
		Extension:       extension,
		DominantColours: colours,
	}
	if err := os.WriteFile(art.Path, body, 0644); err != nil {
		return Artwork{}, err
	}
	meta, _ := json.Marshal(art)
	os.WriteFile(c.metaPath(guid), meta, 0644)

	return art, nil
}

func (c *Cache) loadLocal(guid uuid.UUID) (Artwork, error) {
	meta, err := os.ReadFile(c.metaPath(guid))
	if err != nil {
		return Artwork{}, err
	}
	var art Artwork
	if err := json.Unmarshal(meta, &art); err != nil {
		return Artwork{}, err
	}
	if _, err := os.Stat(art.Path); err != nil {
		return Artwork{}, err
	}
	return art, nil
}

func (c *Cache) metaPath(guid uuid.UUID) string {
	return filepath.Join(c.storageDir, fmt.Sprintf("cover.%s.json", guid))
}

func (c *Cache) fetch(artworkKey string) ([]byte, string, []string, error) {
	res, err := c.client.Get(c.assetURL(artworkKey))
	if err != nil {
		return nil, "", nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, "", nil, fmt.Errorf("artwork fetch returned status %d", res.StatusCode)
	}

	var buf bytes.Buffer
	tee := io.TeeReader(res.Body, &buf)

	body, err := io.ReadAll(tee)
	if err != nil {
		return nil, "", nil, err
	}

	extension := ""
	switch http.DetectContentType(body) {
	case "image/jpeg":
		extension = "jpeg"
	case "image/png":
		extension = "png"
	default:
		return nil, "", nil, fmt.Errorf("artwork %s is not a supported image type", artworkKey)
	}

	var domColours []string
	img, _, err := image.Decode(&buf)
	if err == nil {
		for _, c := range color_extractor.ExtractColors(img) {
			domColours = append(domColours, colorToHexString(c))
		}
	}

	return body, extension, domColours, nil
}

// keyToGUID derives a stable on-disk name from an artwork key. Keys are
// arbitrary server-side strings so they get hashed rather than used as
// filenames directly.
func keyToGUID(artworkKey string) uuid.UUID {
	keyHash := md5.Sum([]byte(artworkKey))
	var genericBytes []byte = keyHash[:]
	guid, _ := uuid.FromBytes(genericBytes)
	return guid
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}

// CleanOlderThan drops covers that haven't been touched within age.
// Runs on a daily schedule; losing a cover only costs a refetch.
func (c *Cache) CleanOlderThan(age time.Duration) {
	entries, err := os.ReadDir(c.storageDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-age)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "cover.") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(c.storageDir, entry.Name()))
		}
	}
}
