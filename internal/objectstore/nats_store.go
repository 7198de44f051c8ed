// Package objectstore stores reference audio and prediction outputs in a NATS
// JetStream object store bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
)

// NatsObjectStore implements the core.ObjectStore interface using NATS
// JetStream.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// New binds to the named bucket, creating it when it does not exist yet.
func New(
	jetstreamContext nats.JetStreamContext,
	bucketName string,
) (*NatsObjectStore, error) {
	store, bindErr := jetstreamContext.ObjectStore(bucketName)
	if bindErr != nil {
		if !errors.Is(bindErr, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf(
				"failed to bind to object store bucket '%s': %w",
				bucketName,
				bindErr,
			)
		}

		var createErr error

		store, createErr = jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucketName,
			Description: fmt.Sprintf("Prediction audio storage (%s).", bucketName),
			TTL:         0,
			MaxBytes:    0,
			Storage:     nats.FileStorage,
			Replicas:    1,
			Placement:   nil,
			Metadata:    nil,
			Compression: false,
		})
		if createErr != nil {
			return nil, fmt.Errorf(
				"failed to create object store bucket '%s': %w",
				bucketName,
				createErr,
			)
		}
	}

	return &NatsObjectStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves an object from the bucket.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, getErr := n.store.Get(key)
	if getErr != nil {
		return nil, fmt.Errorf(
			"failed to get object '%s' from bucket '%s': %w",
			key,
			n.bucket,
			getErr,
		)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload saves an object to the bucket.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte) error {
	reader := bytes.NewReader(data)

	_, putErr := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, reader)
	if putErr != nil {
		return fmt.Errorf(
			"failed to put object '%s' to bucket '%s': %w",
			key,
			n.bucket,
			putErr,
		)
	}

	return nil
}
