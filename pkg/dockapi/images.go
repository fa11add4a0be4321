package dockapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dockhand/pkg/archive"
)

// Images is the typed facade over the engine's image endpoints.
type Images struct {
	client *Client
}

// Image is a read-only projection of an engine image document.
type Image struct {
	ID           string
	Tags         []string
	Size         int64
	Architecture string

	attrs map[string]any
	coll  *Images
}

func newImage(coll *Images, attrs map[string]any) *Image {
	img := &Image{attrs: attrs, coll: coll}
	img.ID, _ = attrs["Id"].(string)
	if tags, ok := attrs["RepoTags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				img.Tags = append(img.Tags, s)
			}
		}
	}
	if size, ok := attrs["Size"].(float64); ok {
		img.Size = int64(size)
	}
	if arch, ok := attrs["Architecture"].(string); ok {
		img.Architecture = arch
	}
	return img
}

// ShortID is the fixed 12-character prefix of the full ID.
func (i *Image) ShortID() string {
	if len(i.ID) > 12 {
		return i.ID[:12]
	}
	return i.ID
}

// Attrs exposes the raw server document.
func (i *Image) Attrs() map[string]any {
	return i.attrs
}

// Remove deletes this image.
func (i *Image) Remove(ctx context.Context, force, noPrune bool) error {
	return i.coll.Remove(ctx, i.ID, force, noPrune)
}

// ImageListOptions filters an image listing. NamePrefix matches as a
// substring against repo tags, client-side.
type ImageListOptions struct {
	NamePrefix string
	All        bool
	Filters    map[string][]string
}

// List returns images known to the daemon.
func (is *Images) List(ctx context.Context, opts ImageListOptions) ([]*Image, error) {
	q := url.Values{}
	queryBool(q, "all", opts.All)
	if len(opts.Filters) > 0 {
		if err := queryJSON(q, "filters", opts.Filters); err != nil {
			return nil, err
		}
	}

	resp, err := is.client.do(ctx, apiRequest{method: http.MethodGet, path: "/images/json", query: q})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	var docs []map[string]any
	if err := resp.decode(&docs); err != nil {
		return nil, err
	}

	images := make([]*Image, 0, len(docs))
	for _, doc := range docs {
		img := newImage(is, doc)
		if opts.NamePrefix != "" && !tagsMatch(img.Tags, opts.NamePrefix) {
			continue
		}
		images = append(images, img)
	}
	return images, nil
}

func tagsMatch(tags []string, name string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, name) {
			return true
		}
	}
	return false
}

// Get inspects an image by name or ID. Absence yields a NotFoundError.
func (is *Images) Get(ctx context.Context, nameOrID string) (*Image, error) {
	resp, err := is.client.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/images/" + nameOrID + "/json",
	})
	if err != nil {
		return nil, notFoundOr(err, "image", nameOrID)
	}
	var doc map[string]any
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}
	return newImage(is, doc), nil
}

// Pull fetches an image from a registry, draining the progress stream,
// then returns the inspected result.
func (is *Images) Pull(ctx context.Context, repository, tag string, platform string) (*Image, error) {
	if tag == "" {
		tag = "latest"
	}
	q := url.Values{}
	q.Set("fromImage", repository)
	q.Set("tag", tag)
	if platform != "" {
		q.Set("platform", platform)
	}

	rc, err := is.client.doStream(ctx, apiRequest{method: http.MethodPost, path: "/images/create", query: q})
	if err != nil {
		return nil, fmt.Errorf("failed to pull %s:%s: %w", repository, tag, err)
	}
	// The pull is only complete once the progress stream ends.
	_, copyErr := io.Copy(io.Discard, rc)
	closeErr := rc.Close()
	if copyErr != nil {
		return nil, fmt.Errorf("failed to read pull stream for %s:%s: %w", repository, tag, copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close pull stream for %s:%s: %w", repository, tag, closeErr)
	}

	return is.Get(ctx, repository+":"+tag)
}

// Tag adds a repository:tag reference to an existing image.
func (is *Images) Tag(ctx context.Context, nameOrID, repository, tag string) error {
	q := url.Values{}
	q.Set("repo", repository)
	if tag != "" {
		q.Set("tag", tag)
	}
	_, err := is.client.do(ctx, apiRequest{method: http.MethodPost, path: "/images/" + nameOrID + "/tag", query: q})
	if err != nil {
		return fmt.Errorf("failed to tag image %s: %w", nameOrID, notFoundOr(err, "image", nameOrID))
	}
	return nil
}

// Remove deletes an image by name or ID.
func (is *Images) Remove(ctx context.Context, nameOrID string, force, noPrune bool) error {
	q := url.Values{}
	queryBool(q, "force", force)
	queryBool(q, "noprune", noPrune)
	_, err := is.client.do(ctx, apiRequest{method: http.MethodDelete, path: "/images/" + nameOrID, query: q})
	if err != nil {
		return fmt.Errorf("failed to remove image %s: %w", nameOrID, notFoundOr(err, "image", nameOrID))
	}
	return nil
}

// BuildOptions configures an image build.
type BuildOptions struct {
	ContextDir       string
	Tag              string
	Dockerfile       string // default "Dockerfile"
	BuildArgs        map[string]string
	Platform         string
	KeepIntermediate bool // keep intermediate containers (rm=false)
	MaxContextSize   int64 // bytes; 0 = unlimited
	OnMessage        func(string)
}

// Build packs the context directory into a tar archive, streams it to the
// engine and follows the newline-delimited JSON build output. The
// returned Image is synthesized from the captured tag and aux ID rather
// than re-fetched: freshly built images are not always independently
// queryable right away.
func (is *Images) Build(ctx context.Context, opts BuildOptions) (*Image, error) {
	dockerfile := opts.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	contextTar, err := archive.PackDirContents(opts.ContextDir)
	if err != nil {
		return nil, fmt.Errorf("failed to pack build context: %w", err)
	}
	if opts.MaxContextSize > 0 && int64(len(contextTar)) > opts.MaxContextSize {
		return nil, fmt.Errorf("build context is %d bytes, exceeding the %d byte limit", len(contextTar), opts.MaxContextSize)
	}

	q := url.Values{}
	q.Set("dockerfile", dockerfile)
	queryBool(q, "rm", !opts.KeepIntermediate)
	if opts.Tag != "" {
		q.Set("t", opts.Tag)
	}
	if len(opts.BuildArgs) > 0 {
		if err := queryJSON(q, "buildargs", opts.BuildArgs); err != nil {
			return nil, err
		}
	}
	if opts.Platform != "" {
		q.Set("platform", opts.Platform)
	}

	rc, err := is.client.doStream(ctx, apiRequest{
		method:  http.MethodPost,
		path:    "/build",
		query:   q,
		rawBody: contextTar,
		headers: map[string]string{"Content-Type": "application/x-tar"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start build: %w", err)
	}
	defer rc.Close()

	res, err := decodeBuildStream(rc, opts.OnMessage)
	if err != nil {
		return nil, err
	}
	if !res.succeeded {
		return nil, &BuildError{Message: "build completed but no success confirmation received"}
	}

	id := res.imageID
	if id == "" {
		id = "sha256:" + opts.Tag
	}
	var tags []string
	if opts.Tag != "" {
		tags = []string{opts.Tag}
	}
	return &Image{ID: id, Tags: tags, coll: is, attrs: map[string]any{}}, nil
}
