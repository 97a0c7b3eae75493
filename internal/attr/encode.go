package attr

import (
	"fmt"
	"strconv"

	"github.com/ispkit/radsync/pkg/models"
)

// defaultQueuePriority is the device's lowest queue priority, applied
// when a plan does not set one. Valid range on the device is 1-8.
const defaultQueuePriority = 8

// ReplyAttribute is one (attribute, value) pair a policy group returns on
// successful authentication. Priority fixes the insert order so the group
// reply set is deterministic.
type ReplyAttribute struct {
	Name     Name
	Value    string
	Priority int
}

func unitSymbol(u models.SpeedUnit) string {
	if u == models.SpeedUnitMbps {
		return "M"
	}
	return "k"
}

// BuildRateLimit renders a plan's bandwidth policy in the device's
// rate-limit attribute grammar. Base form is "{down}{unit}/{up}{unit}".
// When burst download, burst upload and burst duration are all set, the
// extended five-field form is produced:
//
//	rx/tx rx-burst/tx-burst rx-threshold/tx-threshold rx-time/tx-time priority
//
// Field count and ordering are part of the wire contract with the NAS
// firmware and must not change.
func BuildRateLimit(plan models.Plan) string {
	unit := unitSymbol(plan.SpeedUnit)
	base := fmt.Sprintf("%d%s/%d%s", plan.DownloadSpeed, unit, plan.UploadSpeed, unit)

	if plan.BurstDownload <= 0 || plan.BurstUpload <= 0 || plan.BurstTime <= 0 {
		return base
	}

	priority := plan.Priority
	if priority <= 0 {
		priority = defaultQueuePriority
	}

	return fmt.Sprintf("%s %d%s/%d%s %dk/%dk %ds/%ds %d",
		base,
		plan.BurstDownload, unit, plan.BurstUpload, unit,
		plan.BurstThreshold, plan.BurstThreshold,
		plan.BurstTime, plan.BurstTime,
		priority)
}

// PlanAttributes returns the ordered reply attributes a plan's policy
// group carries. Rate limit always leads; the address pool follows when
// configured. A Session-Timeout is emitted only for hour-based plans:
// day and month plans rely on the Expiration check instead, because a
// session timeout would cut short sessions that reconnect daily.
func PlanAttributes(plan models.Plan) []ReplyAttribute {
	attrs := []ReplyAttribute{
		{Name: MikrotikRateLimit, Value: BuildRateLimit(plan), Priority: 1},
	}

	if plan.PoolName != "" {
		attrs = append(attrs, ReplyAttribute{Name: FramedPool, Value: plan.PoolName, Priority: 2})
	}

	if plan.ValidityUnit == models.ValidityUnitHours && plan.ValidityValue > 0 {
		seconds := plan.ValidityValue * 3600
		attrs = append(attrs, ReplyAttribute{Name: SessionTimeout, Value: strconv.Itoa(seconds), Priority: 3})
	}

	return attrs
}
