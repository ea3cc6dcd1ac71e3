package audiocache

import (
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/earshot-audio/earshot/models"
)

// AssetResolver exchanges a media key for its remote asset description.
// In production this is api.Client.ResolveAsset.
type AssetResolver func(mediaKey string) (models.Asset, error)

type remoteResource struct {
	key      string
	ready    chan struct{}
	url      string
	duration float64
	err      error
}

// NewRemoteFactory builds handles whose preparation resolves the asset
// against the backend. The handle is usable immediately; duration and
// stream URL arrive once Ready closes.
func NewRemoteFactory(resolve AssetResolver) Factory {
	return func(mediaKey string) Resource {
		res := &remoteResource{
			key:   mediaKey,
			ready: make(chan struct{}),
		}
		go func() {
			defer close(res.ready)
			asset, err := resolve(mediaKey)
			if err != nil {
				slog.Error("Failed to prepare audio asset",
					slog.String("resource_id", ResourceID(mediaKey)),
					slog.String("stack", err.Error()),
				)
				res.err = err
				return
			}
			res.url = asset.URL
			res.duration = float64(asset.DurationMs) / 1000
		}()
		return res
	}
}

func (r *remoteResource) Key() string {
	return r.key
}

func (r *remoteResource) Ready() <-chan struct{} {
	return r.ready
}

func (r *remoteResource) Duration() float64 {
	return r.duration
}

func (r *remoteResource) Err() error {
	return r.err
}

// StreamURL is only valid once Ready has closed without error.
func (r *remoteResource) StreamURL() string {
	return r.url
}

// ResourceID gives media keys a short stable identity for logs and
// on-disk names. Keys can contain arbitrary path characters so they are
// hashed rather than sanitised.
func ResourceID(mediaKey string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(mediaKey))
}
