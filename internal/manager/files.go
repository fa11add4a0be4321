package manager

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"dockhand/pkg/archive"
)

// CopyToContainer packs a host file or directory into a tar archive and
// extracts it at dstPath inside the container.
func (m *Manager) CopyToContainer(ctx context.Context, name, srcPath, dstPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("source path not found: %s", srcPath)
	}

	var data []byte
	if info.IsDir() {
		data, err = archive.PackDir(srcPath, "")
	} else {
		data, err = archive.PackFile(srcPath, "")
	}
	if err != nil {
		return err
	}

	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := container.PutArchive(ctx, dstPath, data); err != nil {
		return err
	}
	log.Info("copied into container", "container", name, "src", srcPath, "dst", dstPath)
	return nil
}

// CopyFromContainer downloads srcPath from the container as a tar archive
// and unpacks it under dstPath on the host, creating it if needed.
func (m *Manager) CopyFromContainer(ctx context.Context, name, srcPath, dstPath string) error {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return err
	}
	data, err := container.GetArchive(ctx, srcPath)
	if err != nil {
		return err
	}
	if err := archive.Unpack(data, dstPath, ""); err != nil {
		return err
	}
	log.Info("copied from container", "container", name, "src", srcPath, "dst", dstPath)
	return nil
}
