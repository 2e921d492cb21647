package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

var (
	bucketUploads = []byte("uploads")
	bucketSession = []byte("session")
	keySession    = []byte("info")
)

var _ port.UploadRegistry = (*BoltRegistry)(nil)

// BoltRegistry records uploaded documents in a bbolt file inside the
// session store directory. It is wiped together with that directory when a
// new session starts.
type BoltRegistry struct {
	db *bbolt.DB
}

func NewBoltRegistry(path string) (*BoltRegistry, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketUploads, bucketSession} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltRegistry{db: db}, nil
}

func (s *BoltRegistry) Has(name string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketUploads).Get([]byte(name)) != nil
		return nil
	})
	return found, err
}

// Put stores the upload record, replacing any record with the same name.
func (s *BoltRegistry) Put(upload domain.Upload) error {
	if upload.Name == "" {
		return fmt.Errorf("%w: upload name is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(upload)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUploads).Put([]byte(upload.Name), data)
	})
}

// List returns uploads ordered by upload time, then name.
func (s *BoltRegistry) List() ([]domain.Upload, error) {
	var uploads []domain.Upload
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUploads).ForEach(func(k, v []byte) error {
			var u domain.Upload
			if err := json.Unmarshal(v, &u); err != nil {
				return fmt.Errorf("decode upload %s: %w", k, err)
			}
			uploads = append(uploads, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(uploads, func(i, j int) bool {
		if !uploads[i].UploadedAt.Equal(uploads[j].UploadedAt) {
			return uploads[i].UploadedAt.Before(uploads[j].UploadedAt)
		}
		return uploads[i].Name < uploads[j].Name
	})
	return uploads, nil
}

func (s *BoltRegistry) Close() error {
	return s.db.Close()
}
