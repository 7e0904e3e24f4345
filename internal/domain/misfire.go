package domain

// MisfireInstruction selects how a trigger catches up after a missed fire
// (spec §4.2). The valid set depends on the trigger variant; SmartPolicy and
// IgnoreMisfirePolicy apply to all of them.
type MisfireInstruction int

const (
	MisfireSmartPolicy MisfireInstruction = iota
	MisfireIgnoreMisfirePolicy

	// Simple trigger only.
	MisfireSimpleFireNow
	MisfireSimpleRescheduleNowWithExistingCount
	MisfireSimpleRescheduleNowWithRemainingCount
	MisfireSimpleRescheduleNextWithRemainingCount
	MisfireSimpleRescheduleNextWithExistingCount

	// Cron / calendar-interval / daily-time-interval.
	MisfireFireOnceNow
	MisfireDoNothing
)

func (m MisfireInstruction) String() string {
	switch m {
	case MisfireSmartPolicy:
		return "SMART_POLICY"
	case MisfireIgnoreMisfirePolicy:
		return "IGNORE_MISFIRE_POLICY"
	case MisfireSimpleFireNow:
		return "FIRE_NOW"
	case MisfireSimpleRescheduleNowWithExistingCount:
		return "RESCHEDULE_NOW_WITH_EXISTING_REPEAT_COUNT"
	case MisfireSimpleRescheduleNowWithRemainingCount:
		return "RESCHEDULE_NOW_WITH_REMAINING_REPEAT_COUNT"
	case MisfireSimpleRescheduleNextWithRemainingCount:
		return "RESCHEDULE_NEXT_WITH_REMAINING_COUNT"
	case MisfireSimpleRescheduleNextWithExistingCount:
		return "RESCHEDULE_NEXT_WITH_EXISTING_COUNT"
	case MisfireFireOnceNow:
		return "FIRE_ONCE_NOW"
	case MisfireDoNothing:
		return "DO_NOTHING"
	default:
		return "UNKNOWN"
	}
}

// CompletionInstruction is what a worker returns after running a job
// (spec §4.3 "Worker").
type CompletionInstruction int

const (
	CompletionNoop CompletionInstruction = iota
	CompletionReExecuteJob
	CompletionSetTriggerComplete
	CompletionDeleteTrigger
	CompletionSetAllJobTriggersComplete
	CompletionSetTriggerError
	CompletionSetAllJobTriggersError
)
