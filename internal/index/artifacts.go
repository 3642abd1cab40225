package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"support-agent/internal/common/config"
)

// Artifact names shared by every backend.
const (
	VectorArtifact   = "vector.index"
	MetadataArtifact = "metadata.json"
)

// ErrArtifactNotFound is returned by ArtifactStore.Read for a missing artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore persists the index's two artifacts. WritePair stores both or
// leaves the previous pair readable; a store never exposes a vector artifact
// from one batch with metadata from another.
type ArtifactStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	WritePair(ctx context.Context, vectors, metadata []byte) error
}

// FileArtifacts keeps artifacts in a local directory.
type FileArtifacts struct {
	Dir string

	rename func(oldpath, newpath string) error
}

func NewFileArtifacts(dir string) *FileArtifacts {
	return &FileArtifacts{Dir: dir, rename: os.Rename}
}

func (f *FileArtifacts) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// WritePair stages both artifacts as synced temp files, then renames the
// vectors and the metadata into place. If the metadata rename fails the
// previous vector artifact is put back.
func (f *FileArtifacts) WritePair(_ context.Context, vectors, metadata []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	vecTmp, err := f.stage(VectorArtifact, vectors)
	if err != nil {
		return err
	}
	defer os.Remove(vecTmp)
	metaTmp, err := f.stage(MetadataArtifact, metadata)
	if err != nil {
		return err
	}
	defer os.Remove(metaTmp)

	vecPath := filepath.Join(f.Dir, VectorArtifact)
	previous, err := os.ReadFile(vecPath)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", VectorArtifact, err)
	}

	rename := f.rename
	if rename == nil {
		rename = os.Rename
	}
	if err := rename(vecTmp, vecPath); err != nil {
		return fmt.Errorf("replace %s: %w", VectorArtifact, err)
	}
	if err := rename(metaTmp, filepath.Join(f.Dir, MetadataArtifact)); err != nil {
		if restoreErr := f.restoreVectors(vecPath, previous, hadPrevious); restoreErr != nil {
			return fmt.Errorf("replace %s: %w (restoring %s: %v)", MetadataArtifact, err, VectorArtifact, restoreErr)
		}
		return fmt.Errorf("replace %s: %w", MetadataArtifact, err)
	}
	return nil
}

func (f *FileArtifacts) stage(name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(f.Dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return tmp.Name(), nil
}

func (f *FileArtifacts) restoreVectors(vecPath string, previous []byte, hadPrevious bool) error {
	if !hadPrevious {
		return os.Remove(vecPath)
	}
	tmp, err := f.stage(VectorArtifact, previous)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	return os.Rename(tmp, vecPath)
}

// ArtifactsFromConfig picks the artifact backend named by cfg.Backend.
func ArtifactsFromConfig(ctx context.Context, cfg config.IndexConfig) (ArtifactStore, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileArtifacts(cfg.Dir), nil
	case "bolt":
		return NewBoltArtifacts(filepath.Join(cfg.Dir, "index.db"))
	case "s3":
		return NewS3ArtifactsFromEnv(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix)
	default:
		return nil, fmt.Errorf("unsupported index backend %q", cfg.Backend)
	}
}
