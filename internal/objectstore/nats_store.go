// Package objectstore keeps the worker's text inputs and audio outputs in
// NATS JetStream object store buckets.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const bucketDescriptionFmt = "tts %s objects"

// Bucket is a single JetStream object store bucket. It implements
// core.ObjectStore.
type Bucket struct {
	name  string
	store nats.ObjectStore
}

// Open binds to the named bucket, creating it when it does not exist yet.
func Open(js nats.JetStreamContext, name string) (*Bucket, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      name,
		Description: fmt.Sprintf(bucketDescriptionFmt, name),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if errors.Is(err, jetstream.ErrBucketExists) || errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		store, err = js.ObjectStore(name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open object store bucket %q: %w", name, err)
	}

	return &Bucket{name: name, store: store}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Download reads the whole object stored under key.
func (b *Bucket) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := b.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %q from bucket %q: %w", key, b.name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q from bucket %q: %w", key, b.name, err)
	}

	return data, nil
}

// Upload stores data under key, replacing any previous object.
func (b *Bucket) Upload(_ context.Context, key string, data []byte) error {
	_, err := b.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put %q into bucket %q: %w", key, b.name, err)
	}

	return nil
}
