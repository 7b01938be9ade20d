package domain

import "time"

// Channel is an outbound distribution surface.
type Channel string

const (
	ChannelPublishTarget  Channel = "publish_target"
	ChannelSocialPlatform Channel = "social_platform"
	ChannelNewsletter     Channel = "newsletter"
)

// TaskStatus is the state of a distribution task. Transitions only move
// forward: draft -> scheduled -> sent/posted, draft -> sent/posted, any
// non-terminal -> failed, batch sends may end in partial_failure. A failed
// task is terminal; a retry is a new task.
type TaskStatus string

const (
	TaskDraft          TaskStatus = "draft"
	TaskScheduled      TaskStatus = "scheduled"
	TaskSent           TaskStatus = "sent"
	TaskPosted         TaskStatus = "posted"
	TaskFailed         TaskStatus = "failed"
	TaskPartialFailure TaskStatus = "partial_failure"
)

// Terminal reports whether a task in this status can no longer transition.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskSent, TaskPosted, TaskFailed, TaskPartialFailure:
		return true
	}
	return false
}

// DistributionTask tracks one distribution attempt of a content item over a
// channel. For batch sends the recipient tallies are recorded on the task.
type DistributionTask struct {
	ID                int64
	ContentItemID     int64
	Channel           Channel
	Target            string
	Status            TaskStatus
	ScheduledFor      *time.Time
	AttemptedAt       *time.Time
	ExternalReference *string
	LastError         *string
	Total             int
	Succeeded         int
	Failed            int
	CreatedAt         time.Time
}

// BatchOutcome is the aggregate tally of a multi-recipient send. It is
// ephemeral; only the derived status and counts land on the task.
type BatchOutcome struct {
	Total     int
	Succeeded int
	Failed    int
}

// Status maps the tally onto a task status. An empty batch is vacuously
// successful.
func (o BatchOutcome) Status() TaskStatus {
	switch {
	case o.Total == 0:
		return TaskSent
	case o.Succeeded == o.Total:
		return TaskSent
	case o.Succeeded == 0:
		return TaskFailed
	default:
		return TaskPartialFailure
	}
}
