package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func BatchKey(batchID uuid.UUID) string {
	return fmt.Sprintf("batch:%s", batchID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// MetricsKey addresses a daily counter for dashboard aggregation,
// e.g. metrics:summarize:2026-08-31:success.
func MetricsKey(toolType, day, outcome string) string {
	return fmt.Sprintf("metrics:%s:%s:%s", toolType, day, outcome)
}
