// Package coa sends out-of-band control requests to NAS devices:
// Disconnect-Request to terminate a session, CoA-Request to change its
// bandwidth in place. Outcomes are booleans, not errors — an unreachable
// device, a wrong secret or an already-gone session are ordinary
// steady-state conditions in a fleet of independently operated devices.
package coa

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/ispkit/radsync/internal/metrics"
	"github.com/ispkit/radsync/internal/session"
	"github.com/ispkit/radsync/pkg/config"
	"github.com/ispkit/radsync/pkg/logger"
)

// Mikrotik vendor-specific attribute identifiers.
const (
	vendorMikrotik         = 14988
	vsaMikrotikRateLimit   = 8
	attrTypeVendorSpecific = 26
)

type Client struct {
	port    int
	timeout time.Duration
	retry   time.Duration

	sessions *session.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewClient builds a control client. Zero Port, Timeout or Retry fall
// back to the config defaults, so a zero timeout can never produce a
// context that expires before the first send.
func NewClient(cfg config.CoAConfig, sessions *session.Store, m *metrics.Metrics) *Client {
	defaults := config.DefaultCoAConfig()
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Retry == 0 {
		cfg.Retry = defaults.Retry
	}

	return &Client{
		port:     cfg.Port,
		timeout:  cfg.Timeout.Std(),
		retry:    cfg.Retry.Std(),
		sessions: sessions,
		logger:   logger.Get(logger.CoA),
		metrics:  m,
	}
}

// DisconnectUser asks the NAS to terminate the named session. Username is
// the full tenant-scoped RADIUS username the NAS authenticated. Returns
// whether the device acknowledged.
func (c *Client) DisconnectUser(ctx context.Context, nasIP, username, secret string) bool {
	packet := radius.New(radius.CodeDisconnectRequest, []byte(secret))
	rfc2865.UserName_SetString(packet, username)

	return c.exchange(ctx, "disconnect", packet, nasIP, username, radius.CodeDisconnectACK)
}

// ChangeBandwidth pushes a new rate limit onto an established session
// without forcing reauthentication. RateLimit is the encoded rate-limit
// attribute string. Returns whether the device acknowledged.
func (c *Client) ChangeBandwidth(ctx context.Context, nasIP, username, secret, rateLimit string) bool {
	packet := radius.New(radius.CodeCoARequest, []byte(secret))
	rfc2865.UserName_SetString(packet, username)
	packet.Add(attrTypeVendorSpecific, buildMikrotikVSA(vsaMikrotikRateLimit, []byte(rateLimit)))

	return c.exchange(ctx, "coa", packet, nasIP, username, radius.CodeCoAACK)
}

// DisconnectAllSessions terminates every active session the subscriber
// holds, one request per session — a username can be online through
// several NAS devices at once. Acked counts distinct devices that
// acknowledged at least one request; attempted counts requests sent.
// Partial success is a normal outcome. The session lookup completes
// before any network call, so no database work is in flight while
// waiting on a device.
func (c *Client) DisconnectAllSessions(ctx context.Context, tenant, localUsername, secret string) (acked, attempted int, err error) {
	sessions, err := c.sessions.ActiveSessions(ctx, tenant, localUsername)
	if err != nil {
		return 0, 0, err
	}

	ackedBy := make(map[string]struct{})
	for _, sess := range sessions {
		packet := radius.New(radius.CodeDisconnectRequest, []byte(secret))
		rfc2865.UserName_SetString(packet, sess.Username)
		if sess.SessionID != "" {
			rfc2866.AcctSessionID_SetString(packet, sess.SessionID)
		}

		attempted++
		if c.exchange(ctx, "disconnect", packet, sess.NasIPAddress, sess.Username, radius.CodeDisconnectACK) {
			ackedBy[sess.NasIPAddress] = struct{}{}
		}
	}

	return len(ackedBy), attempted, nil
}

// exchange sends one control request and classifies the outcome. The
// boolean is the public contract; the finer-grained reason (nak, timeout,
// transport error) feeds logs and metrics only.
func (c *Client) exchange(ctx context.Context, kind string, packet *radius.Packet, nasIP, username string, ack radius.Code) bool {
	addr := net.JoinHostPort(nasIP, strconv.Itoa(c.port))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client := &radius.Client{Retry: c.retry}
	response, err := client.Exchange(ctx, packet, addr)

	var result string
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	case response.Code == ack:
		result = "ack"
	default:
		result = "nak"
	}

	c.metrics.ObserveCoA(kind, result)

	log := logger.WithSubscriber(c.logger, logger.SubscriberAttrs{Username: username, NasIP: nasIP}).
		With("type", kind, "result", result)
	switch result {
	case "ack":
		log.Info("Control request acknowledged")
	case "nak":
		log.Info("Control request refused by device", "code", response.Code)
	default:
		log.Warn("Control request failed", "error", err)
	}

	return result == "ack"
}

// buildMikrotikVSA wraps a value in the Vendor-Specific attribute layout:
// vendor id (4 bytes), vendor type (1), vendor length (1), value.
func buildMikrotikVSA(vsaType byte, value []byte) radius.Attribute {
	vsa := make([]byte, 6+len(value))
	binary.BigEndian.PutUint32(vsa[0:4], vendorMikrotik)
	vsa[4] = vsaType
	vsa[5] = byte(len(value) + 2)
	copy(vsa[6:], value)
	return radius.Attribute(vsa)
}
