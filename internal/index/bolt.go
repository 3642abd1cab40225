package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var artifactBucket = []byte("artifacts")

// BoltArtifacts keeps both artifacts as keys of one bbolt bucket.
type BoltArtifacts struct {
	db *bbolt.DB
}

func NewBoltArtifacts(path string) (*BoltArtifacts, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt artifacts %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(artifactBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create artifact bucket: %w", err)
	}
	return &BoltArtifacts{db: db}, nil
}

func (b *BoltArtifacts) Read(_ context.Context, name string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(artifactBucket).Get([]byte(name))
		if v == nil {
			return ErrArtifactNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WritePair puts both artifacts in one bbolt transaction.
func (b *BoltArtifacts) WritePair(_ context.Context, vectors, metadata []byte) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(artifactBucket)
		if err := bucket.Put([]byte(VectorArtifact), vectors); err != nil {
			return err
		}
		return bucket.Put([]byte(MetadataArtifact), metadata)
	})
	if err != nil {
		return fmt.Errorf("write index artifacts: %w", err)
	}
	return nil
}

func (b *BoltArtifacts) Close() error {
	return b.db.Close()
}
