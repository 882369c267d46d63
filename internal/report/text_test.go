package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akita-tools/akita/internal/analyzer"
	"github.com/akita-tools/akita/internal/domain"
)

const sampleLog = `01-15 10:00:00.100 I wm_set_resumed_activity: [0,com.tencent.mm/.ui.LauncherUI,minimalResumeActivityLocked]
01-15 10:00:10.000 I wm_set_resumed_activity: [0,com.smile.gifmaker/.HomeActivity,minimalResumeActivityLocked]
01-15 10:00:20.000 I lowmemorykiller: Kill 'com.tencent.mm' (4321), uid 10001, oom_score_adj 900 to free 123456kB
01-15 10:00:30.000 I wm_set_resumed_activity: [0,com.tencent.mm/.ui.LauncherUI,minimalResumeActivityLocked]
01-15 10:00:40.000 I wm_set_resumed_activity: [0,com.smile.gifmaker/.HomeActivity,minimalResumeActivityLocked]
`

func analyze(t *testing.T) *analyzer.Result {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	res, err := analyzer.AnalyzeReader(strings.NewReader(sampleLog), analyzer.Options{
		Apps:   []string{"com.tencent.mm", "com.smile.gifmaker"},
		Rounds: 2,
		Clock:  mock,
	})
	require.NoError(t, err)
	return res
}

func TestRender(t *testing.T) {
	res := analyze(t)

	buf := &bytes.Buffer{}
	New(buf, false).Render(res, nil)

	out := buf.String()
	assert.Contains(t, out, res.RunID)
	assert.Contains(t, out, "event summary")
	assert.Contains(t, out, "kills per package")
	assert.Contains(t, out, "classified starts")
	assert.Contains(t, out, "process sessions")
	assert.Contains(t, out, "residency")
	assert.Contains(t, out, "survival heatmap")
	assert.Contains(t, out, "com.tencent.mm")

	// No window section unless one is passed in.
	assert.NotContains(t, out, "startup window")
}

func TestRenderWindow(t *testing.T) {
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("detected", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf, false).RenderWindow(domain.WindowResult{
			Detected:      true,
			Start:         base,
			End:           base.Add(40 * time.Second),
			DurationSec:   40,
			MatchedCount:  4,
			ExpectedCount: 4,
			MatchScore:    100,
			Tolerance:     10,
			Confidence:    domain.ConfidenceHigh,
		})

		out := buf.String()
		assert.Contains(t, out, "startup window")
		assert.Contains(t, out, "matched  4/4 (100.0%)")
		assert.Contains(t, out, "HIGH")
	})

	t.Run("not detected", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf, false).RenderWindow(domain.WindowResult{})
		assert.Contains(t, buf.String(), "no startup window detected")
	})
}

func TestRenderNoColorHasNoEscapes(t *testing.T) {
	res := analyze(t)

	buf := &bytes.Buffer{}
	New(buf, false).Render(res, nil)
	assert.NotContains(t, buf.String(), "\x1b[")
}
