package attr

import (
	"testing"
	"time"

	"github.com/ispkit/radsync/pkg/models"
)

func TestBuildRateLimitBaseForm(t *testing.T) {
	tests := []struct {
		name string
		plan models.Plan
		want string
	}{
		{
			name: "mbps plan",
			plan: models.Plan{DownloadSpeed: 50, UploadSpeed: 30, SpeedUnit: models.SpeedUnitMbps},
			want: "50M/30M",
		},
		{
			name: "kbps plan",
			plan: models.Plan{DownloadSpeed: 512, UploadSpeed: 256, SpeedUnit: models.SpeedUnitKbps},
			want: "512k/256k",
		},
		{
			name: "burst download only stays base",
			plan: models.Plan{DownloadSpeed: 50, UploadSpeed: 30, SpeedUnit: models.SpeedUnitMbps, BurstDownload: 100},
			want: "50M/30M",
		},
		{
			name: "zero burst time stays base",
			plan: models.Plan{DownloadSpeed: 50, UploadSpeed: 30, SpeedUnit: models.SpeedUnitMbps, BurstDownload: 100, BurstUpload: 50},
			want: "50M/30M",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRateLimit(tt.plan)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRateLimitBurstForm(t *testing.T) {
	plan := models.Plan{
		DownloadSpeed:  50,
		UploadSpeed:    30,
		SpeedUnit:      models.SpeedUnitMbps,
		BurstDownload:  100,
		BurstUpload:    50,
		BurstThreshold: 100,
		BurstTime:      10,
		Priority:       1,
	}

	got := BuildRateLimit(plan)
	want := "50M/30M 100M/50M 100k/100k 10s/10s 1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildRateLimitBurstDefaults(t *testing.T) {
	// Missing threshold renders as 0, missing priority falls back to the
	// device's lowest queue priority.
	plan := models.Plan{
		DownloadSpeed: 10,
		UploadSpeed:   10,
		SpeedUnit:     models.SpeedUnitMbps,
		BurstDownload: 20,
		BurstUpload:   20,
		BurstTime:     8,
	}

	got := BuildRateLimit(plan)
	want := "10M/10M 20M/20M 0k/0k 8s/8s 8"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPlanAttributesOrdering(t *testing.T) {
	plan := models.Plan{
		DownloadSpeed: 50,
		UploadSpeed:   30,
		SpeedUnit:     models.SpeedUnitMbps,
		PoolName:      "pool-ftth",
		ValidityValue: 6,
		ValidityUnit:  models.ValidityUnitHours,
	}

	attrs := PlanAttributes(plan)
	if len(attrs) != 3 {
		t.Fatalf("got %d attributes, want 3", len(attrs))
	}
	if attrs[0].Name != MikrotikRateLimit || attrs[0].Priority != 1 {
		t.Fatalf("first attribute = %+v, want rate limit at priority 1", attrs[0])
	}
	if attrs[1].Name != FramedPool || attrs[1].Value != "pool-ftth" || attrs[1].Priority != 2 {
		t.Fatalf("second attribute = %+v, want pool at priority 2", attrs[1])
	}
	if attrs[2].Name != SessionTimeout || attrs[2].Value != "21600" || attrs[2].Priority != 3 {
		t.Fatalf("third attribute = %+v, want session timeout 21600 at priority 3", attrs[2])
	}
}

func TestPlanAttributesDayPlanHasNoSessionTimeout(t *testing.T) {
	plan := models.Plan{
		DownloadSpeed: 50,
		UploadSpeed:   30,
		SpeedUnit:     models.SpeedUnitMbps,
		ValidityValue: 30,
		ValidityUnit:  models.ValidityUnitDays,
	}

	for _, a := range PlanAttributes(plan) {
		if a.Name == SessionTimeout {
			t.Fatalf("day-based plan produced Session-Timeout %q", a.Value)
		}
	}
}

func TestPlanAttributesMinimalPlan(t *testing.T) {
	plan := models.Plan{DownloadSpeed: 5, UploadSpeed: 5, SpeedUnit: models.SpeedUnitKbps}

	attrs := PlanAttributes(plan)
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want 1", len(attrs))
	}
	if attrs[0].Value != "5k/5k" {
		t.Fatalf("got %q, want %q", attrs[0].Value, "5k/5k")
	}
}

func TestFormatExpiration(t *testing.T) {
	expiry := time.Date(2026, time.March, 7, 10, 30, 0, 0, time.UTC)
	got := FormatExpiration(expiry)
	want := "Mar 07 2026 23:59:59"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatMAC(t *testing.T) {
	got := FormatMAC("aa:bb:cc:dd:ee:ff")
	if got != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("got %q, want %q", got, "AA:BB:CC:DD:EE:FF")
	}
}
