package manager

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/docker/go-units"

	"dockhand/pkg/dockapi"
)

// ImageInfo is the plain-data view of an image.
type ImageInfo struct {
	ID           string // short form
	FullID       string
	Tags         []string
	Size         int64
	SizeHuman    string
	Architecture string
}

func imageInfo(img *dockapi.Image) ImageInfo {
	return ImageInfo{
		ID:           img.ShortID(),
		FullID:       img.ID,
		Tags:         img.Tags,
		Size:         img.Size,
		SizeHuman:    units.BytesSize(float64(img.Size)),
		Architecture: img.Architecture,
	}
}

// ListImages returns the daemon's images.
func (m *Manager) ListImages(ctx context.Context) ([]ImageInfo, error) {
	images, err := m.client.Images.List(ctx, dockapi.ImageListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	infos := make([]ImageInfo, 0, len(images))
	for _, img := range images {
		infos = append(infos, imageInfo(img))
	}
	return infos, nil
}

// PullImage pulls repository:tag from a registry.
func (m *Manager) PullImage(ctx context.Context, repository, tag string) (ImageInfo, error) {
	img, err := m.client.Images.Pull(ctx, repository, tag, "")
	if err != nil {
		return ImageInfo{}, err
	}
	log.Info("image pulled", "image", repository, "tag", tag)
	return imageInfo(img), nil
}

// RemoveImage removes an image by name or ID.
func (m *Manager) RemoveImage(ctx context.Context, nameOrID string, force bool) error {
	if err := m.client.Images.Remove(ctx, nameOrID, force, false); err != nil {
		return err
	}
	log.Info("image removed", "image", nameOrID)
	return nil
}

// BuildImage builds an image from a Dockerfile directory, forwarding
// progress lines to onMessage. The configured build-context cap applies.
func (m *Manager) BuildImage(ctx context.Context, path, tag string, onMessage func(string)) error {
	log.Info("building image", "tag", tag, "path", path)
	_, err := m.client.Images.Build(ctx, dockapi.BuildOptions{
		ContextDir:     path,
		Tag:            tag,
		MaxContextSize: m.cfg.MaxBuildContext,
		OnMessage:      onMessage,
	})
	if err != nil {
		return err
	}
	log.Info("image built", "tag", tag)
	return nil
}
