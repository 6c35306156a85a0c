package core

import "context"

// ObjectStore removes uploaded files (course images, lesson thumbnails and videos) by key.
type ObjectStore interface {
	DeleteObject(ctx context.Context, key string) error
}
