package config

import (
    "log"
    "time"
    _ "time/tzdata" // EXAM_TIMEZONE must resolve on hosts without zoneinfo
)

// SchedulingConfig carries the defaults used when an admin generates batches
// for an exam slot, plus the knobs of the reschedule workflow.  Break hours
// are wall-clock hours in Location; all timestamps are persisted in UTC.
type SchedulingConfig struct {
    BatchDurationMinutes int
    BatchGapMinutes      int
    BreakStartHour       int
    BreakEndHour         int
    MaxBatchesPerSlot    int
    Location             *time.Location
    // RescheduleReasonAfter is how long after booking a reschedule request
    // can still be submitted without a reason.
    RescheduleReasonAfter time.Duration
}

// DefaultSchedulingConfig returns the values used when nothing is configured.
func DefaultSchedulingConfig() SchedulingConfig {
    return SchedulingConfig{
        BatchDurationMinutes:  60,
        BatchGapMinutes:       30,
        BreakStartHour:        13,
        BreakEndHour:          14,
        MaxBatchesPerSlot:     500,
        Location:              time.UTC,
        RescheduleReasonAfter: 6 * time.Hour,
    }
}

// LoadSchedulingConfig reads BATCH_*, BREAK_*, EXAM_TIMEZONE and
// RESCHEDULE_REASON_AFTER.  An unknown time zone is fatal because every
// generated batch depends on it.
func LoadSchedulingConfig() SchedulingConfig {
    def := DefaultSchedulingConfig()
    cfg := SchedulingConfig{
        BatchDurationMinutes:  envInt("BATCH_DURATION_MINUTES", def.BatchDurationMinutes),
        BatchGapMinutes:       envInt("BATCH_GAP_MINUTES", def.BatchGapMinutes),
        BreakStartHour:        envInt("BREAK_START_HOUR", def.BreakStartHour),
        BreakEndHour:          envInt("BREAK_END_HOUR", def.BreakEndHour),
        MaxBatchesPerSlot:     envInt("MAX_BATCHES_PER_SLOT", def.MaxBatchesPerSlot),
        RescheduleReasonAfter: envDur("RESCHEDULE_REASON_AFTER", def.RescheduleReasonAfter),
    }
    tz := envStr("EXAM_TIMEZONE", "Africa/Lagos")
    loc, err := time.LoadLocation(tz)
    if err != nil {
        log.Fatalf("invalid EXAM_TIMEZONE %q: %v", tz, err)
    }
    cfg.Location = loc
    if cfg.MaxBatchesPerSlot < 1 { cfg.MaxBatchesPerSlot = def.MaxBatchesPerSlot }
    if cfg.RescheduleReasonAfter < 0 { cfg.RescheduleReasonAfter = def.RescheduleReasonAfter }
    return cfg
}
