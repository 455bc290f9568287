package models

// Interval is one contiguous span of tracked time for a project/branch.
// Start and End are milliseconds since the Unix epoch. A nil End marks the
// interval as open.
type Interval struct {
	ID      string `json:"id"`
	Project string `json:"project"`
	Branch  string `json:"branch"`
	Start   int64  `json:"start"`
	End     *int64 `json:"end,omitempty"`
}

// Open reports whether the interval has not been closed yet.
func (i *Interval) Open() bool {
	return i.End == nil
}

// DurationMs returns the tracked milliseconds of a closed interval. Open
// intervals and records with End before Start count as zero.
func (i *Interval) DurationMs() int64 {
	if i.End == nil || *i.End < i.Start {
		return 0
	}
	return *i.End - i.Start
}
