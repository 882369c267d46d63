package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akita-tools/akita/internal/domain"
)

const sampleLog = `01-15 10:00:00.100 I wm_set_resumed_activity: [0,com.tencent.mm/.ui.LauncherUI,minimalResumeActivityLocked]
01-15 10:00:00.200 I am_proc_start: [0,4321,10001,com.tencent.mm,activity,com.tencent.mm/.ui.LauncherUI]
01-15 10:00:01.000 I ActivityTaskManager: Displayed com.tencent.mm/.ui.LauncherUI: +812ms
01-15 10:00:10.000 I wm_set_resumed_activity: [0,com.smile.gifmaker/.HomeActivity,minimalResumeActivityLocked]
01-15 10:00:20.000 I lowmemorykiller: Kill 'com.tencent.mm' (4321), uid 10001, oom_score_adj 900 to free 123456kB
01-15 10:00:20.100 I killinfo: [4321,com.tencent.mm,10001,900,0,123456,200,pressure,5900000,500000,300000,100000,0,0,1,2,3,4,5]
01-15 10:00:30.000 I wm_set_resumed_activity: [0,com.tencent.mm/.ui.LauncherUI,minimalResumeActivityLocked]
01-15 10:00:40.000 I wm_set_resumed_activity: [0,com.smile.gifmaker/.HomeActivity,minimalResumeActivityLocked]
01-15 10:00:50.000 I ProcessManager: [kill|0|-1107296256|50|10|1|0|0|200000|150000|123456] [com.baidu.searchbox|10005|7777|900|950|123456|2000|123456|true|false] [500000|800000|300000|400000|100000|50000]
01-15 10:00:50.500 I am_kill : [10005,7777,com.baidu.searchbox,900,cached #3,123456]
01-15 10:01:00.000 I killinfo: [8888,com.qiyi.video,10009,905,0,55555,100,pressure,5900000,400000,300000,90000,0,0,1,2,3,4,5]
`

func testOptions() Options {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	return Options{
		Apps:   []string{"com.tencent.mm", "com.smile.gifmaker"},
		Rounds: 2,
		Clock:  mock,
	}
}

func TestAnalyzeReader(t *testing.T) {
	res, err := AnalyzeReader(strings.NewReader(sampleLog), testOptions())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	t.Run("event tally", func(t *testing.T) {
		assert.Equal(t, 7, res.Summary.TotalEvents)
		assert.Equal(t, 4, res.Summary.StartCount)
		assert.Equal(t, 1, res.Summary.KillCount)
		assert.Equal(t, 2, res.Summary.LMKCount)
		assert.Zero(t, res.SkippedLines)
	})

	t.Run("events are time sorted", func(t *testing.T) {
		for i := 1; i < len(res.Events); i++ {
			assert.False(t, res.Events[i].Time.Before(res.Events[i-1].Time))
		}
	})

	t.Run("start enrichment", func(t *testing.T) {
		first := res.Events[0]
		require.Equal(t, domain.KindStart, first.Kind)
		require.NotNil(t, first.Start.ProcStart)
		assert.Equal(t, "4321", first.Start.ProcStart.PID)
		assert.Equal(t, 812, first.Start.DisplayedMS)
	})

	t.Run("kill info attachment and am_kill merge", func(t *testing.T) {
		var lmk, kill *domain.LogEvent
		for _, ev := range res.Events {
			switch {
			case ev.Kind == domain.KindLMK && ev.ProcessName == "com.tencent.mm":
				lmk = ev
			case ev.Kind == domain.KindKill:
				kill = ev
			}
		}
		require.NotNil(t, lmk)
		require.Len(t, lmk.LMK.KillInfo, 1)
		assert.Equal(t, "pressure", lmk.LMK.Reason)

		require.NotNil(t, kill)
		assert.True(t, kill.Kill.HasSource("am_kill"))
		require.NotNil(t, kill.Kill.AMKill)
	})

	t.Run("orphan killinfo is conserved", func(t *testing.T) {
		var found bool
		for _, ev := range res.Events {
			if ev.Kind == domain.KindLMK && ev.ProcessName == "com.qiyi.video" {
				found = true
				assert.Equal(t, "8888", ev.LMK.PID)
			}
		}
		assert.True(t, found)
	})

	t.Run("classification", func(t *testing.T) {
		require.Len(t, res.Classified, 4)
		assert.Equal(t, domain.VerdictCold, res.Classified[0].Verdict) // process creation
		assert.Equal(t, domain.VerdictHot, res.Classified[1].Verdict)
		assert.Equal(t, domain.VerdictCold, res.Classified[2].Verdict) // killed in between
		assert.Equal(t, domain.VerdictHot, res.Classified[3].Verdict)
		for i, ce := range res.Classified {
			assert.Equal(t, i, ce.Slot)
		}
	})

	t.Run("residency and heatmap", func(t *testing.T) {
		require.Len(t, res.Residency, 3)
		require.NotNil(t, res.Heatmap)
		assert.Len(t, res.Heatmap.Slots, 4)
		assert.Equal(t, domain.CellSelf, res.Heatmap.Cells[0][0])
	})

	t.Run("sessions", func(t *testing.T) {
		require.Len(t, res.Sessions, 4)
		first := res.Sessions[0]
		assert.Equal(t, "com.tencent.mm", first.Package)
		require.True(t, first.Closed())
		assert.Equal(t, domain.KindLMK, first.EndedBy)
	})
}

func TestDetectWindowOverAnalyzedEvents(t *testing.T) {
	opts := testOptions()
	res, err := AnalyzeReader(strings.NewReader(sampleLog), opts)
	require.NoError(t, err)

	window := DetectWindow(res.Events, opts)
	require.True(t, window.Detected)
	assert.Equal(t, 0, window.MismatchCount)
	assert.Equal(t, 4, window.MatchedCount)
	assert.Equal(t, domain.ConfidenceHigh, window.Confidence)
}

func TestAnalyzeFile(t *testing.T) {
	t.Run("plain file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "capture.log")
		require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

		res, err := AnalyzeFile(path, testOptions())
		require.NoError(t, err)
		assert.Equal(t, 7, res.Summary.TotalEvents)
	})

	t.Run("gzip file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "capture.log.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte(sampleLog))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())

		res, err := AnalyzeFile(path, testOptions())
		require.NoError(t, err)
		assert.Equal(t, 7, res.Summary.TotalEvents)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := AnalyzeFile(filepath.Join(t.TempDir(), "nope.log"), testOptions())
		require.Error(t, err)
	})
}

func TestAnalyzeReaderTimeRange(t *testing.T) {
	opts := testOptions()
	opts.StartTime = time.Date(2026, 1, 15, 10, 0, 15, 0, time.UTC)
	opts.EndTime = time.Date(2026, 1, 15, 10, 0, 45, 0, time.UTC)

	res, err := AnalyzeReader(strings.NewReader(sampleLog), opts)
	require.NoError(t, err)

	// Only the lmk (with its killinfo attached) and the two restarts fall
	// in range.
	assert.Equal(t, 3, res.Summary.TotalEvents)
	assert.Equal(t, 2, res.Summary.StartCount)
	assert.Equal(t, 1, res.Summary.LMKCount)
}
