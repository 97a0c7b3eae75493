package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ispkit/radsync/internal/metrics"
	"github.com/ispkit/radsync/pkg/logger"
	"github.com/ispkit/radsync/pkg/models"
)

// shortnameLimit is the fixed width of the trusted-client shortname
// column. Overlong display names are truncated, not rejected.
const shortnameLimit = 32

// Registry maintains the trusted-client table the daemon consults to
// authenticate each incoming NAS request.
type Registry struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRegistry(db *sql.DB, m *metrics.Metrics) *Registry {
	return &Registry{
		db:      db,
		logger:  logger.Get(logger.Registry),
		metrics: m,
	}
}

// SyncDevice upserts a NAS device keyed by its IP address. Idempotent:
// re-syncing an unchanged device is a no-op on the daemon side.
func (r *Registry) SyncDevice(ctx context.Context, nas models.NasDevice) error {
	shortname := nas.Name
	if len(shortname) > shortnameLimit {
		shortname = shortname[:shortnameLimit]
	}

	nasType := strings.ToLower(nas.Type)
	if nasType == "" {
		nasType = "other"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nas (nasname, shortname, type, secret, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(nasname) DO UPDATE SET
			shortname = excluded.shortname,
			type = excluded.type,
			secret = excluded.secret,
			description = excluded.description
	`, nas.IPAddress, shortname, nasType, nas.Secret, nas.Description)
	r.metrics.ObserveSync("sync_device", err)
	if err != nil {
		return fmt.Errorf("sync device %s: %w", nas.IPAddress, err)
	}

	logger.WithSubscriber(r.logger, logger.SubscriberAttrs{NasIP: nas.IPAddress}).
		Info("Synchronized NAS device", "shortname", shortname, "type", nasType)
	return nil
}

// RemoveDevice deletes a NAS device by IP. Removing an absent device is
// success; the trusted-client set converges either way.
func (r *Registry) RemoveDevice(ctx context.Context, ip string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM nas WHERE nasname = ?`, ip)
	r.metrics.ObserveSync("remove_device", err)
	if err != nil {
		return fmt.Errorf("remove device %s: %w", ip, err)
	}

	logger.WithSubscriber(r.logger, logger.SubscriberAttrs{NasIP: ip}).
		Info("Removed NAS device")
	return nil
}
