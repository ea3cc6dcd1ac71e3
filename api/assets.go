package api

import (
	"fmt"
	"net/url"

	"github.com/earshot-audio/earshot/models"
)

const assetsEndpoint = "/assets"

// ResolveAsset exchanges a media key for the asset's stream URL and
// duration. This is the "preparation" step behind every cached audio
// handle.
func (c *Client) ResolveAsset(mediaKey string) (models.Asset, error) {
	var asset models.Asset
	path := fmt.Sprintf("%s/%s", assetsEndpoint, url.PathEscape(mediaKey))
	if err := c.get(path, nil, "asset", &asset); err != nil {
		return asset, err
	}
	return asset, nil
}

// ArtworkURL builds the fetchable URL for a show's artwork key.
func (c *Client) ArtworkURL(artworkKey string) string {
	return fmt.Sprintf("%s%s/%s", c.baseURL, assetsEndpoint, url.PathEscape(artworkKey))
}
