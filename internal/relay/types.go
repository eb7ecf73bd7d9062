// Package relay runs the asynchronous fetch-transcode-publish-reply pipeline
// behind the webhook endpoint.
package relay

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darekasanga/linerelay/internal/line"
	"github.com/darekasanga/linerelay/internal/store"
)

// resizedSuffix marks the downsized variant of a stem.
const resizedSuffix = "_small"

// Job is one unit of asynchronous work: a single inbound event to relay.
type Job struct {
	Event line.InboundEvent
}

// UploadResult pairs the two store revisions produced for one source message.
// Both paths share the same stem, which is what the list and delete surfaces
// use to associate them.
type UploadResult struct {
	Original store.StoredFile `json:"original"`
	Resized  store.StoredFile `json:"resized"`
}

// NewStem builds the shared filename base for one upload: a UTC timestamp
// plus a random suffix, so concurrent uploads never collide and no
// read-before-write check is needed.
func NewStem(now time.Time) string {
	return now.UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}

// OriginalName is the store filename for the full-size variant.
func OriginalName(stem string) string {
	return stem + ".jpg"
}

// ResizedName is the store filename for the downsized variant.
func ResizedName(stem string) string {
	return stem + resizedSuffix + ".jpg"
}

// VariantNames expands any uploaded filename into its original/resized pair.
// Accepts either variant's name (with or without extension) and returns both,
// so a delete by name removes the whole pair.
func VariantNames(name string) (original, resized string) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stem = strings.TrimSuffix(stem, resizedSuffix)
	if ext == "" {
		ext = ".jpg"
	}
	return stem + ext, stem + resizedSuffix + ext
}
