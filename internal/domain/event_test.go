package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasePackage(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"com.tencent.mm", "com.tencent.mm"},
		{"com.tencent.mm:push", "com.tencent.mm"},
		{"com.a:b:c", "com.a"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BasePackage(tc.in))
	}
}

func TestNewLogEvent(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("main process", func(t *testing.T) {
		ev := NewLogEvent(ts, KindStart, "com.tencent.mm", "raw line")
		assert.Equal(t, "com.tencent.mm", ev.ProcessName)
		assert.Equal(t, "com.tencent.mm", ev.FullName)
		assert.False(t, ev.IsSubprocess)
		assert.Equal(t, "raw line", ev.Raw)
	})

	t.Run("subprocess keeps the full name", func(t *testing.T) {
		ev := NewLogEvent(ts, KindLMK, "com.tencent.mm:push", "")
		assert.Equal(t, "com.tencent.mm", ev.ProcessName)
		assert.Equal(t, "com.tencent.mm:push", ev.FullName)
		assert.True(t, ev.IsSubprocess)
	})
}

func TestKillDetailsHasSource(t *testing.T) {
	d := &KillDetails{Sources: []string{"kill", "am_kill"}}
	assert.True(t, d.HasSource("am_kill"))
	assert.False(t, d.HasSource("killinfo"))

	var empty KillDetails
	assert.False(t, empty.HasSource("kill"))
}
