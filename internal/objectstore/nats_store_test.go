// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-predictor/internal/objectstore"
)

// startTestServer starts an in-memory NATS server for testing purposes.
func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func newTestStore(t *testing.T, bucket string) *objectstore.NatsObjectStore {
	t.Helper()

	natsServer, natsConnection := startTestServer(t)
	t.Cleanup(func() {
		natsConnection.Close()
		natsServer.Shutdown()
	})

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, bucket)
	require.NoError(t, err)

	return store
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, "prediction-audio")

	ctx := context.Background()
	key := "speakers/reference.wav"
	uploadData := []byte("reference waveform bytes")

	err := store.Upload(ctx, key, uploadData)
	require.NoError(t, err)

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)

	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_DownloadMissingKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, "prediction-audio-missing")

	_, err := store.Download(context.Background(), "no-such-object.wav")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no-such-object.wav")
}
