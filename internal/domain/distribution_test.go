package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchOutcomeStatus(t *testing.T) {
	tests := []struct {
		name    string
		outcome BatchOutcome
		want    TaskStatus
	}{
		{"empty batch", BatchOutcome{}, TaskSent},
		{"all succeeded", BatchOutcome{Total: 3, Succeeded: 3}, TaskSent},
		{"none succeeded", BatchOutcome{Total: 3, Failed: 3}, TaskFailed},
		{"mixed", BatchOutcome{Total: 3, Succeeded: 2, Failed: 1}, TaskPartialFailure},
		{"single failure", BatchOutcome{Total: 1, Failed: 1}, TaskFailed},
		{"single success", BatchOutcome{Total: 1, Succeeded: 1}, TaskSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Status())
		})
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.False(t, TaskDraft.Terminal())
	assert.False(t, TaskScheduled.Terminal())
	assert.True(t, TaskSent.Terminal())
	assert.True(t, TaskPosted.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.True(t, TaskPartialFailure.Terminal())
}

func TestFeedItemIdentityKey(t *testing.T) {
	assert.Equal(t, "guid-1", FeedItem{GUID: "guid-1", Link: "https://x"}.IdentityKey())
	assert.Equal(t, "https://x", FeedItem{Link: "https://x"}.IdentityKey())
	assert.Equal(t, "", FeedItem{}.IdentityKey())
}
