// Package content stores transaction content in a blob bucket partitioned by lifecycle stage.
// Keys have the form <stage>/<name>, e.g. "outbox/0190c3b2-....edi".
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/edibox/internal/errors"

	// Register bucket drivers
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// DefaultMaxBytes is the largest content accepted when no limit is configured (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

const hashChunkSize = 4096

var (
	// ErrContentNotFound indicates no content exists at the given path.
	ErrContentNotFound = apperrors.Wrap(apperrors.ErrNotFound, "content not found")

	// ErrContentExists indicates the destination path is already taken.
	ErrContentExists = apperrors.Wrap(apperrors.ErrConflict, "content already exists")

	// ErrContentTooLarge indicates content exceeds the configured size limit.
	ErrContentTooLarge = apperrors.Wrap(apperrors.ErrInvalidInput, "content too large")

	// ErrInvalidPath indicates a stage or name that cannot be used as a key segment.
	ErrInvalidPath = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid content path")
)

// Info describes a stored object.
type Info struct {
	Path    string
	Size    int64
	Hash    string
	ModTime time.Time
}

// Store is a stage-partitioned content store backed by a gocloud.dev bucket.
type Store struct {
	bucket   *blob.Bucket
	maxBytes int64
}

// Open opens the bucket at url (file://, mem://, s3://, gs://, azblob://).
func Open(ctx context.Context, url string, maxBytes int64) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open content bucket: %w", err)
	}
	return NewStore(bucket, maxBytes), nil
}

// NewStore wraps an already opened bucket. A non-positive maxBytes uses DefaultMaxBytes.
func NewStore(bucket *blob.Bucket, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{bucket: bucket, maxBytes: maxBytes}
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Ping reports an error when the bucket cannot be reached.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach content bucket: %w", err)
	}
	if !ok {
		return fmt.Errorf("content bucket is not accessible")
	}
	return nil
}

// MaxBytes returns the configured size limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Key builds the storage path for name inside stage.
func Key(stage, name string) string {
	return stage + "/" + name
}

// StageOf returns the stage partition of a path.
func StageOf(p string) string {
	stage, _, _ := strings.Cut(p, "/")
	return stage
}

// HashBytes returns the hex SHA-256 digest of content.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func validSegment(v string) bool {
	return v != "" && v != "." && v != ".." && !strings.ContainsAny(v, `/\`)
}

func (s *Store) checkSize(content []byte) error {
	if int64(len(content)) > s.maxBytes {
		return apperrors.Wrapf(ErrContentTooLarge, "%d bytes exceeds limit of %d", len(content), s.maxBytes)
	}
	return nil
}

func mapErr(err error, p string) error {
	if err == nil {
		return nil
	}
	if gcerrors.Code(err) == gcerrors.NotFound {
		return apperrors.Wrap(ErrContentNotFound, p)
	}
	return fmt.Errorf("content %s: %w", p, err)
}

// Save writes content to a new key <stage>/<name>. It fails with ErrContentExists
// when the key is already present.
func (s *Store) Save(ctx context.Context, stage, name string, content []byte) (Info, error) {
	if !validSegment(stage) || !validSegment(name) {
		return Info{}, apperrors.Wrapf(ErrInvalidPath, "%q/%q", stage, name)
	}
	if err := s.checkSize(content); err != nil {
		return Info{}, err
	}

	key := Key(stage, name)
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return Info{}, err
	}
	if exists {
		return Info{}, apperrors.Wrap(ErrContentExists, key)
	}

	return s.Write(ctx, key, content)
}

// Write stores content at p, replacing any previous content.
func (s *Store) Write(ctx context.Context, p string, content []byte) (Info, error) {
	if err := s.checkSize(content); err != nil {
		return Info{}, err
	}
	if err := s.bucket.WriteAll(ctx, p, content, nil); err != nil {
		return Info{}, fmt.Errorf("failed to write content %s: %w", p, err)
	}
	return Info{
		Path:    p,
		Size:    int64(len(content)),
		Hash:    HashBytes(content),
		ModTime: time.Now().UTC(),
	}, nil
}

// Copy duplicates the object at from into toStage keeping its name and returns the new path.
func (s *Store) Copy(ctx context.Context, from, toStage string) (string, error) {
	if !validSegment(toStage) {
		return "", apperrors.Wrapf(ErrInvalidPath, "stage %q", toStage)
	}
	to := Key(toStage, path.Base(from))
	if err := s.CopyTo(ctx, from, to); err != nil {
		return "", err
	}
	return to, nil
}

// CopyTo duplicates the object at from into the exact key to, which must not exist.
func (s *Store) CopyTo(ctx context.Context, from, to string) error {
	if from == to {
		return apperrors.Wrap(ErrContentExists, to)
	}

	exists, err := s.Exists(ctx, from)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.Wrap(ErrContentNotFound, from)
	}

	exists, err = s.Exists(ctx, to)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Wrap(ErrContentExists, to)
	}

	if err := s.bucket.Copy(ctx, to, from, nil); err != nil {
		return mapErr(err, from)
	}
	return nil
}

// Move relocates the object at from into toStage and returns the new path.
// The source is removed only after the copy succeeded.
func (s *Store) Move(ctx context.Context, from, toStage string) (string, error) {
	to, err := s.Copy(ctx, from, toStage)
	if err != nil {
		return "", err
	}
	if err := s.Delete(ctx, from); err != nil {
		return "", err
	}
	return to, nil
}

// Delete removes the object at p. Deleting a missing object returns ErrContentNotFound.
func (s *Store) Delete(ctx context.Context, p string) error {
	return mapErr(s.bucket.Delete(ctx, p), p)
}

// Read returns the full content at p.
func (s *Store) Read(ctx context.Context, p string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, p)
	if err != nil {
		return nil, mapErr(err, p)
	}
	return data, nil
}

// Hash computes the hex SHA-256 of the object at p, reading it in fixed size chunks.
func (s *Store) Hash(ctx context.Context, p string) (string, error) {
	r, err := s.bucket.NewReader(ctx, p, nil)
	if err != nil {
		return "", mapErr(err, p)
	}
	defer func() {
		_ = r.Close()
	}()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := r.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to hash content %s: %w", p, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Stat returns size, modification time and hash of the object at p.
func (s *Store) Stat(ctx context.Context, p string) (Info, error) {
	attrs, err := s.bucket.Attributes(ctx, p)
	if err != nil {
		return Info{}, mapErr(err, p)
	}
	hash, err := s.Hash(ctx, p)
	if err != nil {
		return Info{}, err
	}
	return Info{Path: p, Size: attrs.Size, Hash: hash, ModTime: attrs.ModTime}, nil
}

// Exists reports whether an object is stored at p.
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, p)
	if err != nil {
		return false, fmt.Errorf("failed to check content %s: %w", p, err)
	}
	return ok, nil
}

// List returns the objects stored in stage. Hash is not populated.
func (s *Store) List(ctx context.Context, stage string) ([]Info, error) {
	iter := s.bucket.List(&blob.ListOptions{Prefix: stage + "/"})
	items := make([]Info, 0)
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list content in %s: %w", stage, err)
		}
		if obj.IsDir {
			continue
		}
		items = append(items, Info{Path: obj.Key, Size: obj.Size, ModTime: obj.ModTime})
	}
	return items, nil
}

// Size returns the total byte size of stage.
func (s *Store) Size(ctx context.Context, stage string) (int64, error) {
	items, err := s.List(ctx, stage)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, it := range items {
		total += it.Size
	}
	return total, nil
}
