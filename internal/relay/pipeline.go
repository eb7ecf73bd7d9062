package relay

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"time"

	"github.com/darekasanga/linerelay/internal/config"
	"github.com/darekasanga/linerelay/internal/imaging"
	"github.com/darekasanga/linerelay/internal/line"
	"github.com/darekasanga/linerelay/internal/store"
)

// ContentFetcher retrieves a message's binary payload from the platform.
type ContentFetcher interface {
	GetContent(ctx context.Context, messageID string) (line.Asset, error)
}

// Replier delivers messages back to the originating conversation.
type Replier interface {
	ReplyText(ctx context.Context, replyToken, text string) error
	ReplyUpload(ctx context.Context, replyToken, originalURL, resizedURL string, uploadedAt time.Time) error
}

// ObjectStore commits content to the remote store.
type ObjectStore interface {
	Put(ctx context.Context, path string, content []byte, sha string) (store.StoredFile, error)
}

// Pipeline executes one inbound event end to end: fetch, transcode, publish
// both variants, reply. Steps are strictly sequential; any failure aborts the
// rest of this event only.
type Pipeline struct {
	fetcher   ContentFetcher
	replier   Replier
	store     ObjectStore
	uploadDir string
	imageOpts imaging.Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline wires the pipeline from its collaborators and configuration.
func NewPipeline(log *slog.Logger, fetcher ContentFetcher, replier Replier, objStore ObjectStore, github config.GitHubConfig, image config.ImageConfig) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		fetcher:   fetcher,
		replier:   replier,
		store:     objStore,
		uploadDir: github.UploadDir,
		imageOpts: imaging.Options{
			MaxBytes:     image.MaxBytes,
			MaxWidth:     image.MaxWidth,
			MaxHeight:    image.MaxHeight,
			Quality:      image.Quality,
			QualityFloor: image.QualityFloor,
			QualityStep:  image.QualityStep,
		},
		logger: log.With(slog.String("component", "pipeline")),
		now:    time.Now,
	}
}

// Process handles a single event by kind. Text is echoed back; image and file
// payloads are relayed to the store.
func (p *Pipeline) Process(ctx context.Context, job Job) error {
	ev := job.Event
	switch ev.Kind {
	case line.KindText:
		return p.replier.ReplyText(ctx, ev.ReplyToken, "You said: "+ev.Text)
	case line.KindImage, line.KindFile:
		return p.relayBinary(ctx, ev)
	default:
		return nil
	}
}

func (p *Pipeline) relayBinary(ctx context.Context, ev line.InboundEvent) error {
	asset, err := p.fetcher.GetContent(ctx, ev.MessageID)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", ev.MessageID, err)
	}

	uploadedAt := p.now()
	stem := NewStem(uploadedAt)

	if !imaging.IsImage(asset.Data) {
		if ev.Kind == line.KindImage {
			return fmt.Errorf("message %s: %w", ev.MessageID, imaging.ErrDecode)
		}
		return p.relayRawFile(ctx, ev, asset, stem)
	}

	normalized, err := imaging.Normalize(asset.Data)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", ev.MessageID, err)
	}
	resized, err := imaging.Downsize(asset.Data, p.imageOpts)
	if err != nil {
		return fmt.Errorf("downsize %s: %w", ev.MessageID, err)
	}

	original, err := p.store.Put(ctx, p.storePath(OriginalName(stem)), normalized, "")
	if err != nil {
		return fmt.Errorf("publish original %s: %w", ev.MessageID, err)
	}
	small, err := p.store.Put(ctx, p.storePath(ResizedName(stem)), resized, "")
	if err != nil {
		return fmt.Errorf("publish resized %s: %w", ev.MessageID, err)
	}

	result := UploadResult{Original: original, Resized: small}
	p.logger.Info("relayed image",
		slog.String("message_id", ev.MessageID),
		slog.String("stem", stem),
		slog.Int64("original_bytes", original.Size),
		slog.Int64("resized_bytes", small.Size))

	// The webhook request was acknowledged long before this point, so a
	// delivery failure is logged by the worker and goes no further.
	if err := p.replier.ReplyUpload(ctx, ev.ReplyToken, result.Original.PublicURL, result.Resized.PublicURL, uploadedAt); err != nil {
		return fmt.Errorf("reply %s: %w", ev.MessageID, err)
	}
	return nil
}

// relayRawFile stores a non-image payload as-is under the stem, keeping the
// sender's extension when one is known.
func (p *Pipeline) relayRawFile(ctx context.Context, ev line.InboundEvent, asset line.Asset, stem string) error {
	name := stem + rawExtension(ev.FileName, asset.Mime)
	stored, err := p.store.Put(ctx, p.storePath(name), asset.Data, "")
	if err != nil {
		return fmt.Errorf("publish file %s: %w", ev.MessageID, err)
	}

	p.logger.Info("relayed file",
		slog.String("message_id", ev.MessageID),
		slog.String("path", stored.Path),
		slog.Int64("bytes", stored.Size))

	if err := p.replier.ReplyText(ctx, ev.ReplyToken, "Upload complete:\n"+stored.PublicURL); err != nil {
		return fmt.Errorf("reply %s: %w", ev.MessageID, err)
	}
	return nil
}

func (p *Pipeline) storePath(name string) string {
	if p.uploadDir == "" {
		return name
	}
	return path.Join(p.uploadDir, name)
}

func rawExtension(fileName, mimeType string) string {
	if ext := path.Ext(fileName); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
