package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akita-tools/akita/internal/domain"
)

var base = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func start(sec int, pkg, pid string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindStart, pkg, "start")
	ev.Start = &domain.StartDetails{}
	if pid != "" {
		ev.Start.ProcStart = &domain.ProcStartDetails{PID: pid}
	}
	return ev
}

func lmk(sec int, pkg, reason string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindLMK, pkg, "lmk")
	ev.LMK = &domain.LMKDetails{Reason: reason}
	return ev
}

func TestBuild(t *testing.T) {
	sessions := Build([]*domain.LogEvent{
		start(0, "com.a", "100"),
		lmk(30, "com.a", "pressure"),
		start(60, "com.a", "200"),
	})

	require.Len(t, sessions, 2)

	t.Run("killed session is closed with the reason", func(t *testing.T) {
		s := sessions[0]
		assert.Equal(t, 1, s.Session)
		assert.Equal(t, "100", s.PID)
		require.True(t, s.Closed())
		assert.Equal(t, at(30), *s.End)
		assert.Equal(t, domain.KindLMK, s.EndedBy)
		assert.Equal(t, "pressure", s.EndReason)
		assert.Equal(t, 30*time.Second, s.Duration(at(999)))
	})

	t.Run("last session stays open", func(t *testing.T) {
		s := sessions[1]
		assert.Equal(t, 2, s.Session)
		assert.False(t, s.Closed())
		assert.True(t, s.Relaunch)
		assert.Equal(t, 40*time.Second, s.Duration(at(100)))
	})
}

func TestRelaunchWithoutKill(t *testing.T) {
	sessions := Build([]*domain.LogEvent{
		start(0, "com.a", "100"),
		start(50, "com.a", "200"),
	})

	require.Len(t, sessions, 2)
	first := sessions[0]
	require.True(t, first.Closed())
	assert.Equal(t, at(50), *first.End)
	assert.Equal(t, domain.EventKind(""), first.EndedBy)
	assert.True(t, sessions[1].Relaunch)
}

func TestKillWithoutOpenSession(t *testing.T) {
	sessions := Build([]*domain.LogEvent{
		lmk(0, "com.a", "pressure"),
		start(10, "com.b", "1"),
	})

	require.Len(t, sessions, 1)
	assert.Equal(t, "com.b", sessions[0].Package)
}

func TestSubprocessStartsIgnored(t *testing.T) {
	sub := domain.NewLogEvent(at(5), domain.KindStart, "com.a:push", "start")
	sub.Start = &domain.StartDetails{}

	sessions := Build([]*domain.LogEvent{
		start(0, "com.a", "100"),
		sub,
	})
	require.Len(t, sessions, 1)
}

func TestKillReasonFromKillRecord(t *testing.T) {
	kill := domain.NewLogEvent(at(30), domain.KindKill, "com.a", "kill")
	kill.Kill = &domain.KillDetails{
		Stats: domain.KillStats{KillTypeDesc: "NPW"},
	}

	sessions := Build([]*domain.LogEvent{
		start(0, "com.a", "100"),
		kill,
	})
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.KindKill, sessions[0].EndedBy)
	assert.Equal(t, "NPW", sessions[0].EndReason)
}

func TestTrackerLogEnd(t *testing.T) {
	tr := NewTracker()
	tr.Observe(start(0, "com.a", "1"))
	tr.Observe(lmk(30, "com.a", "x"))
	assert.Equal(t, at(30), tr.LogEnd())
}
