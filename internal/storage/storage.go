package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when the requested object is absent.
var ErrNotExist = errors.New("object does not exist")

// ObjectStorage defines common object operations across backends. Get also
// reports the stored content type so callers can echo it back.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore keeps one avatar object per user on an ObjectStorage backend.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore for the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put replaces the user's avatar.
func (s *AvatarStore) Put(ctx context.Context, username string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, avatarKey(username), r, size, contentType)
}

// Get opens a reader for the user's avatar and reports its content type.
func (s *AvatarStore) Get(ctx context.Context, username string) (io.ReadCloser, string, error) {
	return s.backend.Get(ctx, avatarKey(username))
}

// Delete removes the user's avatar.
func (s *AvatarStore) Delete(ctx context.Context, username string) error {
	return s.backend.Delete(ctx, avatarKey(username))
}

func avatarKey(username string) string {
	return "avatars/" + username
}
