package lifecycle_nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing. A
// non-empty token enables token authentication.
func startTestNATSServer(t *testing.T, token string) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:          "127.0.0.1",
		Port:          -1,
		JetStream:     false,
		NoLog:         true,
		NoSigs:        true,
		Authorization: token,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err, "Failed to create NATS server")

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server failed to start")
	}

	t.Cleanup(ns.Shutdown)
	return ns
}

// connectTestNATS starts a server and returns a connected client
func connectTestNATS(t *testing.T) *nats.Conn {
	t.Helper()

	ns := startTestNATSServer(t, "")

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "Failed to connect to NATS")
	t.Cleanup(nc.Close)

	return nc
}
