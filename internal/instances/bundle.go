package instances

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JaimeStill/rainn/pkg/formatting"
	"github.com/JaimeStill/rainn/pkg/storage"
)

// WriteBundle writes every file under folder to w as a zip archive with
// slash-separated paths relative to folder.
func WriteBundle(w io.Writer, folder string) error {
	if _, err := os.Stat(folder); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrArtifactNotFound
		}
		return err
	}

	zw := zip.NewWriter(w)
	if err := zw.AddFS(os.DirFS(folder)); err != nil {
		zw.Close()
		return fmt.Errorf("archive run folder: %w", err)
	}
	return zw.Close()
}

// OpenArtifact opens a file inside a run folder. name is slash-separated and
// relative to the folder, e.g. "artifacts/01_stage_extract_output.txt".
func OpenArtifact(inst *Instance, name string) (*os.File, error) {
	if inst.RunFolder == "" {
		return nil, ErrFolderUnallocated
	}

	local := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(local) {
		return nil, ErrInvalidArtifact
	}

	f, err := os.Open(filepath.Join(inst.RunFolder, local))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrInvalidArtifact
	}

	return f, nil
}

// Bundle serves a finished run's bundle from blob storage when cached,
// otherwise archives the run folder and caches the result.
func (r *repo) Bundle(ctx context.Context, inst *Instance) (io.ReadCloser, error) {
	if inst.RunFolder == "" {
		return nil, ErrFolderUnallocated
	}

	key := bundleKey(inst.ID)
	cacheable := r.store != nil && r.store.Ready() && inst.Status.Terminal()

	if cacheable {
		rc, err := r.store.Get(ctx, key)
		if err == nil {
			r.logger.Debug("bundle served from cache", "instance_id", inst.ID)
			return rc, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("cached bundle read failed", "instance_id", inst.ID, "error", err)
		}
	}

	var buf bytes.Buffer
	if err := WriteBundle(&buf, inst.RunFolder); err != nil {
		return nil, err
	}

	r.logger.Info(
		"bundle packaged",
		"instance_id", inst.ID,
		"size", formatting.FormatBytes(int64(buf.Len()), 1),
	)

	if cacheable {
		if err := r.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), "application/zip"); err != nil {
			r.logger.Warn("bundle cache upload failed", "instance_id", inst.ID, "error", err)
		}
	}

	return io.NopCloser(&buf), nil
}
