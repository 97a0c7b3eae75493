// Package sync converts billing-domain subscriber and plan state into the
// normalized check/reply/group rows the RADIUS daemon authenticates
// against. Every operation runs as one transaction: the daemon reads
// these tables without coordination, so a half-written attribute set must
// never be visible.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ispkit/radsync/internal/attr"
	"github.com/ispkit/radsync/internal/metrics"
	"github.com/ispkit/radsync/internal/namespace"
	"github.com/ispkit/radsync/internal/radiusdb"
	"github.com/ispkit/radsync/pkg/logger"
	"github.com/ispkit/radsync/pkg/models"
)

// State is the subscriber's effective authentication state, derived from
// the row set. There is no status column; the presence of the hard-reject
// check row is what the daemon acts on.
type State int

const (
	StateActive State = iota
	StateDisabled
)

func (s State) String() string {
	if s == StateDisabled {
		return "disabled"
	}
	return "active"
}

type Synchronizer struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(db *sql.DB, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{
		db:      db,
		logger:  logger.Get(logger.Sync),
		metrics: m,
	}
}

// SyncAuth replaces the credential, expiration and device-binding check
// rows for a subscriber. A nil password leaves the stored credential
// untouched; the engine cannot recover a hashed one, so callers pass the
// plaintext captured at creation or reset time.
func (s *Synchronizer) SyncAuth(ctx context.Context, tenant string, sub models.Subscriber, password *string) error {
	username := namespace.BuildUsername(tenant, sub.Username)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if password != nil {
			if err := replaceCheck(tx, username, attr.CleartextPassword, attr.OpSet, *password); err != nil {
				return err
			}
		}
		if err := syncExpiration(tx, username, sub); err != nil {
			return err
		}
		return syncDeviceBinding(tx, username, sub)
	})
	s.metrics.ObserveSync("sync_auth", err)
	if err != nil {
		return fmt.Errorf("sync auth for %s: %w", username, err)
	}

	logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant, Username: username}).
		Debug("Synchronized auth rows")
	return nil
}

// Enable removes the hard-reject row, refreshes the expiration and
// device-binding rows, and restores the plan's group membership when the
// subscriber has a plan assigned. Calling it on an already enabled
// subscriber is harmless.
func (s *Synchronizer) Enable(ctx context.Context, tenant string, sub models.Subscriber) error {
	username := namespace.BuildUsername(tenant, sub.Username)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := deleteCheck(tx, username, attr.AuthType); err != nil {
			return err
		}
		if err := syncExpiration(tx, username, sub); err != nil {
			return err
		}
		if err := syncDeviceBinding(tx, username, sub); err != nil {
			return err
		}

		if sub.PlanID == nil {
			return nil
		}

		var memberships int
		row := tx.QueryRow(`SELECT COUNT(*) FROM radusergroup WHERE username = ?`, username)
		if err := row.Scan(&memberships); err != nil {
			return fmt.Errorf("count group memberships: %w", err)
		}
		if memberships > 0 {
			return nil
		}

		groupname := namespace.BuildGroupname(tenant, *sub.PlanID)
		_, err := tx.Exec(`INSERT INTO radusergroup (username, groupname, priority) VALUES (?, ?, 1)`,
			username, groupname)
		if err != nil {
			return fmt.Errorf("insert group membership %s: %w", groupname, err)
		}
		return nil
	})
	s.metrics.ObserveSync("enable", err)
	if err != nil {
		return fmt.Errorf("enable %s: %w", username, err)
	}

	logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant, Username: username}).
		Info("Enabled subscriber")
	return nil
}

// Disable writes the hard-reject check row and removes every group
// membership in the same transaction. Both must land together: a reject
// row alone still leaves a stale daemon cache able to hand out the
// plan's bandwidth on an in-flight authentication.
func (s *Synchronizer) Disable(ctx context.Context, tenant, localUsername string) error {
	username := namespace.BuildUsername(tenant, localUsername)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := replaceCheck(tx, username, attr.AuthType, attr.OpSet, attr.RejectValue); err != nil {
			return err
		}
		return deleteUserGroups(tx, username)
	})
	s.metrics.ObserveSync("disable", err)
	if err != nil {
		return fmt.Errorf("disable %s: %w", username, err)
	}

	logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant, Username: username}).
		Info("Disabled subscriber")
	return nil
}

// SyncPlan replaces the subscriber's group membership with the given
// plan's group, or with nothing when planID is nil. Always a full
// replacement, never a diff.
func (s *Synchronizer) SyncPlan(ctx context.Context, tenant, localUsername string, planID *int64) error {
	username := namespace.BuildUsername(tenant, localUsername)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := deleteUserGroups(tx, username); err != nil {
			return err
		}
		if planID == nil {
			return nil
		}

		groupname := namespace.BuildGroupname(tenant, *planID)
		_, err := tx.Exec(`INSERT INTO radusergroup (username, groupname, priority) VALUES (?, ?, 1)`,
			username, groupname)
		if err != nil {
			return fmt.Errorf("insert group membership %s: %w", groupname, err)
		}
		return nil
	})
	s.metrics.ObserveSync("sync_plan", err)
	if err != nil {
		return fmt.Errorf("sync plan for %s: %w", username, err)
	}

	logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant, Username: username}).
		Debug("Synchronized plan membership")
	return nil
}

// SyncPlanBandwidth rebuilds the plan's policy-group rows from its
// current numeric fields. The whole group is deleted and re-inserted so
// a changed plan can never leave a mixed old/new attribute set behind.
// Callers invoke this on every plan mutation.
func (s *Synchronizer) SyncPlanBandwidth(ctx context.Context, tenant string, plan models.Plan) error {
	groupname := namespace.BuildGroupname(tenant, plan.ID)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM radgroupreply WHERE groupname = ?`, groupname); err != nil {
			return fmt.Errorf("delete group reply rows: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM radgroupcheck WHERE groupname = ?`, groupname); err != nil {
			return fmt.Errorf("delete group check rows: %w", err)
		}

		for _, a := range attr.PlanAttributes(plan) {
			_, err := tx.Exec(`INSERT INTO radgroupreply (groupname, attribute, op, value) VALUES (?, ?, ?, ?)`,
				groupname, string(a.Name), string(attr.OpReply), a.Value)
			if err != nil {
				return fmt.Errorf("insert group reply %s: %w", a.Name, err)
			}
		}

		maxDevices := plan.MaxDevices
		if maxDevices < 1 {
			maxDevices = 1
		}
		_, err := tx.Exec(`INSERT INTO radgroupcheck (groupname, attribute, op, value) VALUES (?, ?, ?, ?)`,
			groupname, string(attr.SimultaneousUse), string(attr.OpSet), fmt.Sprintf("%d", maxDevices))
		if err != nil {
			return fmt.Errorf("insert group check %s: %w", attr.SimultaneousUse, err)
		}
		return nil
	})
	s.metrics.ObserveSync("sync_plan_bandwidth", err)
	if err != nil {
		return fmt.Errorf("sync plan bandwidth for %s: %w", groupname, err)
	}

	logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant, Groupname: groupname}).
		Debug("Synchronized plan bandwidth", "rate_limit", attr.BuildRateLimit(plan))
	return nil
}

// RemovePlanBandwidth tears down a plan's policy-group rows, for plan
// deletion. Removing an absent group is success.
func (s *Synchronizer) RemovePlanBandwidth(ctx context.Context, tenant string, planID int64) error {
	groupname := namespace.BuildGroupname(tenant, planID)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM radgroupreply WHERE groupname = ?`, groupname); err != nil {
			return fmt.Errorf("delete group reply rows: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM radgroupcheck WHERE groupname = ?`, groupname); err != nil {
			return fmt.Errorf("delete group check rows: %w", err)
		}
		return nil
	})
	s.metrics.ObserveSync("remove_plan_bandwidth", err)
	if err != nil {
		return fmt.Errorf("remove plan bandwidth for %s: %w", groupname, err)
	}
	return nil
}

// SyncReplyAttributes replaces the per-subscriber reply rows, currently
// the static address assignment. No static address means no row.
func (s *Synchronizer) SyncReplyAttributes(ctx context.Context, tenant string, sub models.Subscriber) error {
	username := namespace.BuildUsername(tenant, sub.Username)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := deleteReply(tx, username, attr.FramedIPAddress); err != nil {
			return err
		}
		if sub.StaticIP == "" {
			return nil
		}
		_, err := tx.Exec(`INSERT INTO radreply (username, attribute, op, value) VALUES (?, ?, ?, ?)`,
			username, string(attr.FramedIPAddress), string(attr.OpReply), sub.StaticIP)
		if err != nil {
			return fmt.Errorf("insert reply %s: %w", attr.FramedIPAddress, err)
		}
		return nil
	})
	s.metrics.ObserveSync("sync_reply", err)
	if err != nil {
		return fmt.Errorf("sync reply attributes for %s: %w", username, err)
	}
	return nil
}

// RemoveAuth tears down every row belonging to the subscriber's RADIUS
// username: check, reply and group membership. Used when the subscriber
// is deleted in the billing domain.
func (s *Synchronizer) RemoveAuth(ctx context.Context, tenant, localUsername string) error {
	username := namespace.BuildUsername(tenant, localUsername)

	err := radiusdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, table := range []string{"radcheck", "radreply", "radusergroup"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE username = ?`, username); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
	s.metrics.ObserveSync("remove_auth", err)
	if err != nil {
		return fmt.Errorf("remove auth for %s: %w", username, err)
	}

	logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant, Username: username}).
		Info("Removed subscriber rows")
	return nil
}

// State derives the subscriber's authentication state from the check set.
func (s *Synchronizer) State(ctx context.Context, tenant, localUsername string) (State, error) {
	username := namespace.BuildUsername(tenant, localUsername)

	var rejects int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM radcheck WHERE username = ? AND attribute = ? AND value = ?`,
		username, string(attr.AuthType), attr.RejectValue)
	if err := row.Scan(&rejects); err != nil {
		return StateActive, fmt.Errorf("read state for %s: %w", username, err)
	}

	if rejects > 0 {
		return StateDisabled, nil
	}
	return StateActive, nil
}

// replaceCheck enforces the one-row-per-(username, attribute) invariant:
// every write is delete-then-insert, never an in-place update.
func replaceCheck(tx *sql.Tx, username string, name attr.Name, op attr.Op, value string) error {
	if err := deleteCheck(tx, username, name); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO radcheck (username, attribute, op, value) VALUES (?, ?, ?, ?)`,
		username, string(name), string(op), value)
	if err != nil {
		return fmt.Errorf("insert check %s: %w", name, err)
	}
	return nil
}

func deleteCheck(tx *sql.Tx, username string, name attr.Name) error {
	_, err := tx.Exec(`DELETE FROM radcheck WHERE username = ? AND attribute = ?`, username, string(name))
	if err != nil {
		return fmt.Errorf("delete check %s: %w", name, err)
	}
	return nil
}

func deleteReply(tx *sql.Tx, username string, name attr.Name) error {
	_, err := tx.Exec(`DELETE FROM radreply WHERE username = ? AND attribute = ?`, username, string(name))
	if err != nil {
		return fmt.Errorf("delete reply %s: %w", name, err)
	}
	return nil
}

func deleteUserGroups(tx *sql.Tx, username string) error {
	_, err := tx.Exec(`DELETE FROM radusergroup WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete group memberships: %w", err)
	}
	return nil
}

func syncExpiration(tx *sql.Tx, username string, sub models.Subscriber) error {
	if sub.ExpiresAt == nil {
		return deleteCheck(tx, username, attr.Expiration)
	}
	return replaceCheck(tx, username, attr.Expiration, attr.OpCompare, attr.FormatExpiration(*sub.ExpiresAt))
}

func syncDeviceBinding(tx *sql.Tx, username string, sub models.Subscriber) error {
	if sub.MacAddress == "" {
		return deleteCheck(tx, username, attr.CallingStationID)
	}
	return replaceCheck(tx, username, attr.CallingStationID, attr.OpCompare, attr.FormatMAC(sub.MacAddress))
}
