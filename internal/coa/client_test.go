package coa

import (
	"context"
	"database/sql"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/ispkit/radsync/internal/radiusdb"
	"github.com/ispkit/radsync/internal/session"
	"github.com/ispkit/radsync/pkg/config"
)

const testSecret = "testing123"

// startFakeNAS runs a loopback control-plane listener that ACKs
// disconnects for acme_alice (except session s-gone) and CoA requests
// carrying a vendor rate-limit attribute; everything else is NAKed.
func startFakeNAS(t *testing.T) int {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := radius.PacketServer{
		SecretSource: radius.StaticSecretSource([]byte(testSecret)),
		Handler: radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
			username := rfc2865.UserName_GetString(r.Packet)
			sessionID := rfc2866.AcctSessionID_GetString(r.Packet)

			switch r.Packet.Code {
			case radius.CodeDisconnectRequest:
				if username == "acme_alice" && sessionID != "s-gone" {
					w.Write(r.Response(radius.CodeDisconnectACK))
				} else {
					w.Write(r.Response(radius.CodeDisconnectNAK))
				}
			case radius.CodeCoARequest:
				if hasMikrotikRateLimit(r.Packet) {
					w.Write(r.Response(radius.CodeCoAACK))
				} else {
					w.Write(r.Response(radius.CodeCoANAK))
				}
			}
		}),
	}

	go server.Serve(conn)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	return conn.LocalAddr().(*net.UDPAddr).Port
}

func hasMikrotikRateLimit(p *radius.Packet) bool {
	for _, a := range p.Attributes {
		if a.Type != attrTypeVendorSpecific || len(a.Attribute) < 6 {
			continue
		}
		vendor := binary.BigEndian.Uint32(a.Attribute[0:4])
		if vendor == vendorMikrotik && a.Attribute[4] == vsaMikrotikRateLimit {
			return true
		}
	}
	return false
}

func testClient(t *testing.T, port int, sessions *session.Store) *Client {
	t.Helper()
	cfg := config.CoAConfig{
		Port:    port,
		Timeout: config.Duration(2 * time.Second),
		Retry:   config.Duration(500 * time.Millisecond),
	}
	return NewClient(cfg, sessions, nil)
}

func TestDisconnectUserAcknowledged(t *testing.T) {
	port := startFakeNAS(t)
	c := testClient(t, port, nil)

	ok := c.DisconnectUser(context.Background(), "127.0.0.1", "acme_alice", testSecret)
	require.True(t, ok)
}

func TestDisconnectUserRefused(t *testing.T) {
	port := startFakeNAS(t)
	c := testClient(t, port, nil)

	ok := c.DisconnectUser(context.Background(), "127.0.0.1", "acme_nobody", testSecret)
	require.False(t, ok)
}

func TestDisconnectUserTimeout(t *testing.T) {
	// Grab a free port and release it so nothing answers there.
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()

	cfg := config.CoAConfig{
		Port:    port,
		Timeout: config.Duration(300 * time.Millisecond),
		Retry:   config.Duration(100 * time.Millisecond),
	}
	c := NewClient(cfg, nil, nil)

	start := time.Now()
	ok := c.DisconnectUser(context.Background(), "127.0.0.1", "acme_alice", testSecret)
	require.False(t, ok)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestChangeBandwidthAcknowledged(t *testing.T) {
	port := startFakeNAS(t)
	c := testClient(t, port, nil)

	ok := c.ChangeBandwidth(context.Background(), "127.0.0.1", "acme_alice", testSecret, "50M/30M")
	require.True(t, ok)
}

func TestDisconnectAllSessionsPartialSuccess(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, radiusdb.InitSchema(db))

	now := time.Now()
	for _, sess := range []struct{ id string }{{"s-live"}, {"s-gone"}} {
		_, err := db.Exec(`
			INSERT INTO radacct (acctsessionid, username, nasipaddress, acctstarttime)
			VALUES (?, ?, ?, ?)
		`, sess.id, "acme_alice", "127.0.0.1", now)
		require.NoError(t, err)
	}

	port := startFakeNAS(t)
	c := testClient(t, port, session.NewStore(db, nil))

	acked, attempted, err := c.DisconnectAllSessions(context.Background(), "acme", "alice", testSecret)
	require.NoError(t, err)
	require.Equal(t, 2, attempted)
	require.Equal(t, 1, acked)
}

func TestDisconnectAllSessionsCountsDevicesOnce(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, radiusdb.InitSchema(db))

	// Two live sessions on the same device: both requests go out, but the
	// device counts as acknowledged only once.
	now := time.Now()
	for _, id := range []string{"s-a", "s-b"} {
		_, err := db.Exec(`
			INSERT INTO radacct (acctsessionid, username, nasipaddress, acctstarttime)
			VALUES (?, ?, ?, ?)
		`, id, "acme_alice", "127.0.0.1", now)
		require.NoError(t, err)
	}

	port := startFakeNAS(t)
	c := testClient(t, port, session.NewStore(db, nil))

	acked, attempted, err := c.DisconnectAllSessions(context.Background(), "acme", "alice", testSecret)
	require.NoError(t, err)
	require.Equal(t, 2, attempted)
	require.Equal(t, 1, acked)
}

func TestNewClientDefaultsZeroConfig(t *testing.T) {
	c := NewClient(config.CoAConfig{}, nil, nil)

	require.Equal(t, 3799, c.port)
	require.Equal(t, 5*time.Second, c.timeout)
	require.Equal(t, time.Second, c.retry)
}

func TestBuildMikrotikVSALayout(t *testing.T) {
	vsa := buildMikrotikVSA(vsaMikrotikRateLimit, []byte("50M/30M"))

	require.Equal(t, uint32(vendorMikrotik), binary.BigEndian.Uint32(vsa[0:4]))
	require.Equal(t, byte(vsaMikrotikRateLimit), vsa[4])
	require.Equal(t, byte(len("50M/30M")+2), vsa[5])
	require.Equal(t, "50M/30M", string(vsa[6:]))
}
