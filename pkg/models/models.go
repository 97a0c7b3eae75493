package models

import "time"

// SpeedUnit is the unit the plan's download/upload speeds are expressed in.
type SpeedUnit string

const (
	SpeedUnitKbps SpeedUnit = "kbps"
	SpeedUnitMbps SpeedUnit = "mbps"
)

// ValidityUnit is the unit of a plan's validity duration.
type ValidityUnit string

const (
	ValidityUnitHours  ValidityUnit = "hours"
	ValidityUnitDays   ValidityUnit = "days"
	ValidityUnitMonths ValidityUnit = "months"
)

// Plan is a bandwidth policy owned by the billing domain. This engine
// only reads it to derive RADIUS group attributes.
type Plan struct {
	ID            int64
	Name          string
	DownloadSpeed int
	UploadSpeed   int
	SpeedUnit     SpeedUnit

	BurstDownload  int
	BurstUpload    int
	BurstThreshold int
	BurstTime      int
	Priority       int

	PoolName string

	ValidityValue int
	ValidityUnit  ValidityUnit

	MaxDevices int
}

// Subscriber is the billing-domain subscriber record. Username is
// tenant-local; the tenant-scoped RADIUS username is derived from it.
type Subscriber struct {
	ID         int64
	Username   string
	PlanID     *int64
	MacAddress string
	StaticIP   string
	ExpiresAt  *time.Time
	Deleted    bool
}

// NasDevice is a network access server trusted to talk to the RADIUS
// daemon. IPAddress is the primary key of the trusted-client table.
type NasDevice struct {
	IPAddress   string
	Name        string
	Type        string
	Secret      string
	Description string
}
