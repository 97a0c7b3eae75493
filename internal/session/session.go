// Package session reads the accounting table the RADIUS daemon writes,
// and administratively repairs it. The engine never creates accounting
// rows; it only queries them and closes the ones whose termination event
// was lost.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ispkit/radsync/internal/metrics"
	"github.com/ispkit/radsync/internal/namespace"
	"github.com/ispkit/radsync/pkg/logger"
	"github.com/ispkit/radsync/pkg/models"
)

// StaleTerminateCause marks rows closed by the sweep rather than by the
// NAS, so reports can tell the two apart.
const StaleTerminateCause = "Stale-Session"

// DefaultStaleAfter assumes a 5-minute interim-update interval and
// tolerates two missed updates. Deployments with a different interval
// must configure their own threshold.
const DefaultStaleAfter = 15 * time.Minute

const defaultPageSize = 20

const recordColumns = `radacctid, acctsessionid, username, nasipaddress, framedipaddress,
	callingstationid, acctstarttime, acctupdatetime, acctstoptime,
	acctsessiontime, acctinputoctets, acctoutputoctets, acctterminatecause`

type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewStore(db *sql.DB, m *metrics.Metrics) *Store {
	return &Store{
		db:      db,
		logger:  logger.Get(logger.Session),
		metrics: m,
	}
}

// ActiveSessions returns the subscriber's open sessions, most recent
// first. One subscriber can hold sessions on several NAS devices at once.
func (s *Store) ActiveSessions(ctx context.Context, tenant, localUsername string) ([]models.AccountingRecord, error) {
	username := namespace.BuildUsername(tenant, localUsername)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM radacct
		WHERE username = ? AND acctstoptime IS NULL
		ORDER BY acctstarttime DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("query active sessions for %s: %w", username, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// OnlineUsers returns every open session belonging to the tenant, most
// recent first. Tenant scoping happens purely through the username
// prefix; the table itself has no tenant column.
func (s *Store) OnlineUsers(ctx context.Context, tenant string) ([]models.AccountingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM radacct
		WHERE username LIKE ? ESCAPE '\' AND acctstoptime IS NULL
		ORDER BY acctstarttime DESC
	`, namespace.TenantPrefix(tenant))
	if err != nil {
		return nil, fmt.Errorf("query online users for tenant %s: %w", tenant, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// History returns one page of accounting records matching the filter,
// with total-count metadata. Page is 1-indexed.
func (s *Store) History(ctx context.Context, filter models.SessionFilter, page, pageSize int) (*models.SessionPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	where, args := buildFilter(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM radacct` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count session history: %w", err)
	}

	dataQuery := `SELECT ` + recordColumns + ` FROM radacct` + where +
		` ORDER BY acctstarttime DESC LIMIT ? OFFSET ?`
	dataArgs := append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &models.SessionPage{
		Data: records,
		Meta: models.PageMeta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}, nil
}

// CleanupStale closes every open accounting row with no liveness signal
// inside the threshold: last update older than the cutoff, or no update
// at all and a start time older than the cutoff. One bulk statement, so
// it is safe to run alongside normal synchronization; it only ever moves
// rows from open to closed. An empty tenant sweeps all tenants. The NAS
// is not contacted; this repairs bookkeeping only.
func (s *Store) CleanupStale(ctx context.Context, tenant string, staleAfter time.Duration) (int64, error) {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	now := time.Now()
	cutoff := now.Add(-staleAfter)
	runID := uuid.NewString()

	query := `
		UPDATE radacct
		SET acctstoptime = ?, acctterminatecause = ?
		WHERE acctstoptime IS NULL
		  AND ((acctupdatetime IS NOT NULL AND acctupdatetime < ?)
		    OR (acctupdatetime IS NULL AND acctstarttime < ?))`
	args := []any{now, StaleTerminateCause, cutoff, cutoff}

	if tenant != "" {
		query += ` AND username LIKE ? ESCAPE '\'`
		args = append(args, namespace.TenantPrefix(tenant))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale sessions: %w", err)
	}

	closed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup stale sessions: %w", err)
	}

	s.metrics.AddStaleClosed(closed)
	log := logger.WithSubscriber(s.logger, logger.SubscriberAttrs{Tenant: tenant})
	if closed > 0 {
		log.Info("Closed stale sessions", "run_id", runID, "closed", closed, "stale_after", staleAfter)
	} else {
		log.Debug("No stale sessions", "run_id", runID, "stale_after", staleAfter)
	}

	return closed, nil
}

func buildFilter(filter models.SessionFilter) (string, []any) {
	var conds []string
	var args []any

	switch {
	case filter.Tenant != "" && filter.Username != "":
		conds = append(conds, "username = ?")
		args = append(args, namespace.BuildUsername(filter.Tenant, filter.Username))
	case filter.Tenant != "":
		conds = append(conds, `username LIKE ? ESCAPE '\'`)
		args = append(args, namespace.TenantPrefix(filter.Tenant))
	case filter.Username != "":
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}

	if filter.NasIP != "" {
		conds = append(conds, "nasipaddress = ?")
		args = append(args, filter.NasIP)
	}
	if filter.From != nil {
		conds = append(conds, "acctstarttime >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, "acctstarttime <= ?")
		args = append(args, *filter.To)
	}
	if filter.ActiveOnly {
		conds = append(conds, "acctstoptime IS NULL")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]models.AccountingRecord, error) {
	var records []models.AccountingRecord

	for rows.Next() {
		var rec models.AccountingRecord
		var start, update, stop sql.NullTime

		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Username,
			&rec.NasIPAddress,
			&rec.FramedIPAddress,
			&rec.CallingStationID,
			&start,
			&update,
			&stop,
			&rec.SessionTime,
			&rec.InputOctets,
			&rec.OutputOctets,
			&rec.TerminateCause,
		); err != nil {
			return nil, fmt.Errorf("scan accounting record: %w", err)
		}

		if start.Valid {
			rec.StartTime = start.Time
		}
		if update.Valid {
			t := update.Time
			rec.UpdateTime = &t
		}
		if stop.Valid {
			t := stop.Time
			rec.StopTime = &t
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
