package models

import "time"

// AccountingRecord is one network session row. The RADIUS daemon writes
// these; this engine only reads them and administratively closes stale
// ones. A nil StopTime means the session is still open.
type AccountingRecord struct {
	ID               int64
	SessionID        string
	Username         string
	NasIPAddress     string
	FramedIPAddress  string
	CallingStationID string
	StartTime        time.Time
	UpdateTime       *time.Time
	StopTime         *time.Time
	SessionTime      int64
	InputOctets      int64
	OutputOctets     int64
	TerminateCause   string
}

// SessionFilter narrows a session history query. Zero values mean the
// dimension is not filtered on.
type SessionFilter struct {
	Tenant     string
	Username   string
	NasIP      string
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
}

// PageMeta is the pagination metadata returned with every history page.
// Page is 1-indexed.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// SessionPage is one page of accounting records plus pagination metadata.
type SessionPage struct {
	Data []AccountingRecord `json:"data"`
	Meta PageMeta           `json:"meta"`
}
