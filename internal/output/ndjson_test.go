package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akita-tools/akita/internal/domain"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(buf)
	var m map[string]interface{}
	require.NoError(t, dec.Decode(&m))
	return m
}

var base = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func TestWriteEvent(t *testing.T) {
	t.Run("classified start", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := NewNDJSONWriter(buf)

		ev := domain.NewLogEvent(base, domain.KindStart, "com.tencent.mm", "raw")
		ev.Start = &domain.StartDetails{
			DisplayedMS: 812,
			ProcStart:   &domain.ProcStartDetails{PID: "4321"},
		}
		ce := &domain.ClassifiedEvent{Event: ev, Verdict: domain.VerdictCold, Slot: 2, Round: 2}

		require.NoError(t, w.WriteEvent(ev, ce))

		m := decodeLine(t, buf)
		assert.Equal(t, "event", m["type"])
		assert.EqualValues(t, 1, m["schemaVersion"])
		assert.Equal(t, "start", m["kind"])
		assert.Equal(t, "com.tencent.mm", m["package"])
		assert.Equal(t, "cold", m["verdict"])
		assert.EqualValues(t, 2, m["slot"])
		assert.EqualValues(t, 812, m["displayed_ms"])
		assert.Equal(t, "4321", m["pid"])
	})

	t.Run("lmk without classification", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := NewNDJSONWriter(buf)

		ev := domain.NewLogEvent(base, domain.KindLMK, "com.a:push", "raw")
		ev.LMK = &domain.LMKDetails{PID: "99", Reason: "pressure", RSSKB: "12345"}

		require.NoError(t, w.WriteEvent(ev, nil))

		m := decodeLine(t, buf)
		assert.Equal(t, "lmk", m["kind"])
		assert.Equal(t, "com.a", m["package"])
		assert.Equal(t, "com.a:push", m["full"])
		assert.Equal(t, true, m["subprocess"])
		assert.Equal(t, "pressure", m["reason"])
		assert.Equal(t, "12345", m["rss_kb"])
		_, hasVerdict := m["verdict"]
		assert.False(t, hasVerdict)
	})
}

func TestWriteSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	sum := &domain.Summary{TotalEvents: 7, StartCount: 4}
	require.NoError(t, w.WriteSummary("run-1", 2, sum))

	m := decodeLine(t, buf)
	assert.Equal(t, "summary", m["type"])
	assert.Equal(t, "run-1", m["run_id"])
	assert.EqualValues(t, 2, m["skipped_lines"])
	inner, ok := m["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 7, inner["total_events"])
}

func TestWriteWindow(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WriteWindow(domain.WindowResult{
		Detected:   true,
		MatchScore: 95.5,
		Confidence: domain.ConfidenceHigh,
	}))

	m := decodeLine(t, buf)
	assert.Equal(t, "window", m["type"])
	inner, ok := m["window"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, inner["detected"])
	assert.Equal(t, "HIGH", inner["confidence"])
}

func TestWriteSession(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	end := base.Add(30 * time.Second)
	require.NoError(t, w.WriteSession(&domain.ProcessSession{
		Session: 1,
		Package: "com.a",
		Start:   base,
		End:     &end,
		EndedBy: domain.KindLMK,
	}))

	m := decodeLine(t, buf)
	assert.Equal(t, "session", m["type"])
	inner, ok := m["session"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "com.a", inner["package"])
	assert.Equal(t, "lmk", inner["ended_by"])
}

func TestWriteError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WriteError("ANALYZE_FAILED", "boom", "check the path"))

	m := decodeLine(t, buf)
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "ANALYZE_FAILED", m["code"])
	assert.Equal(t, "boom", m["message"])
	assert.Equal(t, "check the path", m["hint"])
}
