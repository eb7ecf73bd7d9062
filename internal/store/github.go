// Package store persists binary content in a GitHub repository through the
// Contents API. Every write is a commit on the configured branch; the blob
// SHA of the current file acts as the optimistic-concurrency revision token.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/darekasanga/linerelay/internal/config"
)

// StoredFile is one committed revision in the repository.
type StoredFile struct {
	Path      string `json:"path"`
	SHA       string `json:"sha"`
	Size      int64  `json:"size"`
	PublicURL string `json:"public_url"`
}

// Publisher commits, lists, and deletes files on a single repository branch.
type Publisher struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	logger *slog.Logger
}

// NewPublisher creates a Publisher authenticated with the configured token.
func NewPublisher(log *slog.Logger, cfg config.GitHubConfig) *Publisher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return NewPublisherWithClient(log, github.NewClient(httpClient), cfg)
}

// NewPublisherWithClient creates a Publisher around an existing API client.
// Tests use it to point the publisher at a local server.
func NewPublisherWithClient(log *slog.Logger, client *github.Client, cfg config.GitHubConfig) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		client: client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: cfg.Branch,
		logger: log.With(slog.String("component", "store")),
	}
}

// Put commits content at path. An empty sha creates the file and fails with
// ErrConflict when the path already exists; a non-empty sha overwrites and
// fails with ErrConflict when it no longer matches the current revision.
func (p *Publisher) Put(ctx context.Context, path string, content []byte, sha string) (StoredFile, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Upload %s", path)),
		Content: content,
		Branch:  github.String(p.branch),
	}

	var resp *github.RepositoryContentResponse
	var err error
	if sha == "" {
		resp, _, err = p.client.Repositories.CreateFile(ctx, p.owner, p.repo, path, opts)
	} else {
		opts.SHA = github.String(sha)
		opts.Message = github.String(fmt.Sprintf("Update %s", path))
		resp, _, err = p.client.Repositories.UpdateFile(ctx, p.owner, p.repo, path, opts)
	}
	if err != nil {
		return StoredFile{}, p.wrapAPIError("put", path, err)
	}

	stored := StoredFile{
		Path:      path,
		Size:      int64(len(content)),
		PublicURL: p.publicURL(path),
	}
	if resp != nil && resp.Content != nil {
		stored.SHA = resp.Content.GetSHA()
	}
	p.logger.Info("committed file",
		slog.String("path", path),
		slog.Int("size", len(content)))
	return stored, nil
}

// Get resolves the current revision of the file at path.
func (p *Publisher) Get(ctx context.Context, path string) (StoredFile, error) {
	file, _, _, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, path,
		&github.RepositoryContentGetOptions{Ref: p.branch})
	if err != nil {
		return StoredFile{}, p.wrapAPIError("get", path, err)
	}
	if file == nil {
		return StoredFile{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return p.convertContent(file), nil
}

// Delete removes the file at path, resolving the current revision token
// first. A missing path reports ErrNotFound, which repeated deletes also
// report, so delete is idempotent from the caller's point of view.
func (p *Publisher) Delete(ctx context.Context, path string) error {
	current, err := p.Get(ctx, path)
	if err != nil {
		return err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Delete %s", path)),
		SHA:     github.String(current.SHA),
		Branch:  github.String(p.branch),
	}
	if _, _, err := p.client.Repositories.DeleteFile(ctx, p.owner, p.repo, path, opts); err != nil {
		return p.wrapAPIError("delete", path, err)
	}
	p.logger.Info("deleted file", slog.String("path", path))
	return nil
}

// List returns the files under the given directory prefix. A prefix that
// does not exist yet lists as empty rather than failing, since the upload
// directory is only created by the first commit.
func (p *Publisher) List(ctx context.Context, prefix string) ([]StoredFile, error) {
	prefix = strings.TrimRight(prefix, "/")
	_, entries, _, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, prefix,
		&github.RepositoryContentGetOptions{Ref: p.branch})
	if err != nil {
		wrapped := p.wrapAPIError("list", prefix, err)
		if errors.Is(wrapped, ErrNotFound) {
			return []StoredFile{}, nil
		}
		return nil, wrapped
	}

	files := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		files = append(files, p.convertContent(entry))
	}
	return files, nil
}

func (p *Publisher) convertContent(content *github.RepositoryContent) StoredFile {
	return StoredFile{
		Path:      content.GetPath(),
		SHA:       content.GetSHA(),
		Size:      int64(content.GetSize()),
		PublicURL: p.publicURL(content.GetPath()),
	}
}

// publicURL builds the raw-content URL for a committed path.
func (p *Publisher) publicURL(path string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", p.owner, p.repo, p.branch, path)
}

// wrapAPIError maps Contents API failures onto the package sentinels:
// 404 means the path does not exist, 409 means the supplied revision is
// stale, and 422 means a create hit an existing path (the API's "sha wasn't
// supplied" rejection).
func (p *Publisher) wrapAPIError(op, path string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s %s", ErrConflict, op, path)
		}
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
