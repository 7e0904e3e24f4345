package domain

import (
	"github.com/ErlanBelekov/jobcore/internal/datamap"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// JobDetail is the stored description of a job (spec §3). JobClass is an
// opaque identifier the external job factory resolves into a runnable
// instance; the engine never constructs job instances itself.
type JobDetail struct {
	Key         keys.JobKey
	Description string
	JobClass    string
	JobDataMap  datamap.DataMap

	Durable                   bool
	RequestsRecovery          bool
	DisallowConcurrentExec    bool
	PersistDataAfterExecution bool
}

// Clone returns a by-value copy, including a cloned data map, so the store
// never aliases mutable state across a transaction boundary (Design Notes).
func (j *JobDetail) Clone() *JobDetail {
	if j == nil {
		return nil
	}
	clone := *j
	clone.JobDataMap = j.JobDataMap.Clone()
	return &clone
}
