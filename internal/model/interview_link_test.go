package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterviewLinkActive(t *testing.T) {
	now := time.Now()

	link := InterviewLink{Status: LinkStatusSent, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, link.Active(now))

	link.Status = LinkStatusExpired
	assert.False(t, link.Active(now))

	link.Status = LinkStatusInterviewCompleted
	assert.False(t, link.Active(now))

	link.Status = LinkStatusOpened
	link.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, link.Active(now))
	assert.True(t, link.Expired(now))
}
