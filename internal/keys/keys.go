// Package keys defines job and trigger identity and the group matchers the
// store and engine use to select subsets of them.
package keys

import "fmt"

// DefaultGroup is the sentinel group applied when a caller supplies only a name.
const DefaultGroup = "DEFAULT"

// JobKey identifies a job by (name, group). Equality and hashing derive from
// both fields; the zero value is never a valid key.
type JobKey struct {
	Name  string
	Group string
}

// NewJobKey returns a key, defaulting an empty group to DefaultGroup.
func NewJobKey(name, group string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	return JobKey{Name: name, Group: group}
}

func (k JobKey) String() string { return fmt.Sprintf("%s.%s", k.Group, k.Name) }

// TriggerKey identifies a trigger by (name, group).
type TriggerKey struct {
	Name  string
	Group string
}

// NewTriggerKey returns a key, defaulting an empty group to DefaultGroup.
func NewTriggerKey(name, group string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	return TriggerKey{Name: name, Group: group}
}

func (k TriggerKey) String() string { return fmt.Sprintf("%s.%s", k.Group, k.Name) }

// Less orders keys lexicographically: group first, then name. The engine's
// acquire-ordering tiebreak (§4.3 step 2) uses this after fire time and
// priority.
func (k TriggerKey) Less(other TriggerKey) bool {
	if k.Group != other.Group {
		return k.Group < other.Group
	}
	return k.Name < other.Name
}
