package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akita-tools/akita/internal/domain"
	"github.com/akita-tools/akita/internal/extract"
)

var base = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func lmkEvent(sec int, pkg, pid string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindLMK, pkg, "lmk "+pkg)
	ev.LMK = &domain.LMKDetails{PID: pid, Reason: "unknown", KillInfo: []*domain.KillInfoRecord{}}
	return ev
}

func killEvent(sec int, pkg, pid string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindKill, pkg, "kill "+pkg)
	ev.Kill = &domain.KillDetails{
		EventTag: "kill",
		Proc:     domain.ProcInfo{PID: pid},
		Sources:  []string{"kill"},
	}
	return ev
}

func amKillEvent(sec int, pkg, pid string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindAMKill, pkg, "am_kill "+pkg)
	ev.AMKill = &domain.AMKillDetails{PID: pid, ProcessName: pkg, Reason: "cached #3", PSSKB: "1000"}
	return ev
}

func startEvent(sec int, pkg string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindStart, pkg, "start "+pkg)
	ev.Start = &domain.StartDetails{Component: pkg + "/.Main"}
	return ev
}

func procStartEvent(sec int, pkg, pid string) *domain.LogEvent {
	ev := domain.NewLogEvent(at(sec), domain.KindProcStartOnly, pkg, "proc_start "+pkg)
	ev.ProcStart = &domain.ProcStartDetails{PID: pid, StartType: "activity"}
	return ev
}

func killInfoRecord(sec int, pid, comm string, extra map[string]string) *domain.KillInfoRecord {
	fields := map[string]string{"pid": pid, "process_name": comm}
	for k, v := range extra {
		fields[k] = v
	}
	return &domain.KillInfoRecord{
		Time:    at(sec),
		Schema:  domain.SchemaCompact,
		Payload: pid + "," + comm,
		Fields:  fields,
	}
}

func run(raw *extract.RawResult) []*domain.LogEvent {
	return New(nil).Run(raw)
}

func TestAttachKillInfo(t *testing.T) {
	t.Run("nearest record within the window attaches and backfills", func(t *testing.T) {
		rec := killInfoRecord(3, "4321", "com.tencent.mm", map[string]string{
			"rss_kb": "123456", "min_adj": "0", "kill_reason": "pressure",
		})
		lmk := lmkEvent(0, "com.tencent.mm", "4321")

		events := run(&extract.RawResult{
			Events:   []*domain.LogEvent{lmk},
			KillInfo: []*domain.KillInfoRecord{rec},
		})

		require.Len(t, events, 1)
		require.Len(t, lmk.LMK.KillInfo, 1)
		assert.Equal(t, "123456", lmk.LMK.RSSKB)
		assert.Equal(t, "0", lmk.LMK.MinAdj)
		assert.Equal(t, "pressure", lmk.LMK.Reason)
	})

	t.Run("record outside the window stays orphan", func(t *testing.T) {
		rec := killInfoRecord(8, "4321", "com.tencent.mm", nil)
		lmk := lmkEvent(0, "com.tencent.mm", "4321")

		events := run(&extract.RawResult{
			Events:   []*domain.LogEvent{lmk},
			KillInfo: []*domain.KillInfoRecord{rec},
		})

		assert.Empty(t, lmk.LMK.KillInfo)
		// The orphan materializes as its own lmk event.
		require.Len(t, events, 2)
	})

	t.Run("matches by process name when pids disagree", func(t *testing.T) {
		rec := killInfoRecord(1, "9999", "com.tencent.mm", nil)
		lmk := lmkEvent(0, "com.tencent.mm", "4321")

		run(&extract.RawResult{
			Events:   []*domain.LogEvent{lmk},
			KillInfo: []*domain.KillInfoRecord{rec},
		})
		require.Len(t, lmk.LMK.KillInfo, 1)
	})
}

func TestMaterializeOrphans(t *testing.T) {
	t.Run("package-named orphan becomes lmk", func(t *testing.T) {
		rec := killInfoRecord(0, "8888", "com.qiyi.video", map[string]string{
			"adj": "900", "rss_kb": "55555",
		})
		events := run(&extract.RawResult{KillInfo: []*domain.KillInfoRecord{rec}})

		require.Len(t, events, 1)
		ev := events[0]
		assert.Equal(t, domain.KindLMK, ev.Kind)
		assert.Equal(t, "com.qiyi.video", ev.ProcessName)
		require.NotNil(t, ev.LMK)
		assert.Equal(t, "8888", ev.LMK.PID)
		assert.Equal(t, "55555", ev.LMK.RSSKB)
		require.Len(t, ev.LMK.KillInfo, 1)
	})

	t.Run("non-package orphan becomes trig and keeps the record", func(t *testing.T) {
		rec := killInfoRecord(0, "77", "kswapd0", map[string]string{
			"uid": "0", "mem_free_kb": "200000",
			"active_file_kb": "1000", "inactive_file_kb": "2000",
		})
		events := run(&extract.RawResult{KillInfo: []*domain.KillInfoRecord{rec}})

		require.Len(t, events, 1)
		ev := events[0]
		assert.Equal(t, domain.KindTrig, ev.Kind)
		require.NotNil(t, ev.Kill)
		assert.Equal(t, []string{"killinfo"}, ev.Kill.Sources)
		assert.Same(t, rec, ev.Kill.KillInfo)
		assert.Equal(t, "200000", ev.Kill.Mem.MemFree)
		assert.Equal(t, "3000", ev.Kill.Mem.MemFile)
	})

	t.Run("every record ends up attached or materialized", func(t *testing.T) {
		recs := []*domain.KillInfoRecord{
			killInfoRecord(1, "1", "com.a", nil),
			killInfoRecord(50, "2", "com.b", nil),
			killInfoRecord(100, "3", "kswapd0", nil),
		}
		lmk := lmkEvent(0, "com.a", "1")
		events := run(&extract.RawResult{
			Events:   []*domain.LogEvent{lmk},
			KillInfo: recs,
		})

		// One lmk with attachment, one materialized lmk, one materialized trig.
		require.Len(t, events, 3)
		attached := 0
		for _, ev := range events {
			switch {
			case ev.LMK != nil:
				attached += len(ev.LMK.KillInfo)
			case ev.Kill != nil && ev.Kill.KillInfo != nil:
				attached++
			}
		}
		assert.Equal(t, len(recs), attached)
	})
}

func TestMergeAMKill(t *testing.T) {
	t.Run("am_kill within window folds into the kill", func(t *testing.T) {
		kill := killEvent(0, "com.baidu.searchbox", "7777")
		am := amKillEvent(1, "com.baidu.searchbox", "7777")

		events := run(&extract.RawResult{Events: []*domain.LogEvent{kill, am}})

		require.Len(t, events, 1)
		assert.Equal(t, domain.KindKill, events[0].Kind)
		assert.True(t, events[0].Kill.HasSource("am_kill"))
		require.NotNil(t, events[0].Kill.AMKill)
		assert.Equal(t, "cached #3", events[0].Kill.AMKill.Reason)
	})

	t.Run("unmatched am_kill is promoted to a synthetic kill", func(t *testing.T) {
		am := amKillEvent(0, "com.solo.app", "1234")
		events := run(&extract.RawResult{Events: []*domain.LogEvent{am}})

		require.Len(t, events, 1)
		ev := events[0]
		assert.Equal(t, domain.KindKill, ev.Kind)
		assert.Equal(t, "am_kill", ev.Kill.EventTag)
		assert.Equal(t, "1234", ev.Kill.Proc.PID)
		assert.Equal(t, []string{"am_kill"}, ev.Kill.Sources)
	})

	t.Run("am_kill past the window is not merged", func(t *testing.T) {
		kill := killEvent(0, "com.baidu.searchbox", "7777")
		am := amKillEvent(5, "com.baidu.searchbox", "7777")

		events := run(&extract.RawResult{Events: []*domain.LogEvent{kill, am}})

		require.Len(t, events, 2)
		assert.Nil(t, events[0].Kill.AMKill)
	})
}

func TestPairProcStarts(t *testing.T) {
	t.Run("start absorbs the nearest creation", func(t *testing.T) {
		start := startEvent(0, "com.tencent.mm")
		ps := procStartEvent(1, "com.tencent.mm", "4321")

		events := run(&extract.RawResult{Events: []*domain.LogEvent{start, ps}})

		require.Len(t, events, 1)
		require.NotNil(t, events[0].Start.ProcStart)
		assert.Equal(t, "4321", events[0].Start.ProcStart.PID)
	})

	t.Run("subprocess creations never corroborate a start", func(t *testing.T) {
		start := startEvent(0, "com.tencent.mm")
		ps := procStartEvent(1, "com.tencent.mm:push", "4321")

		events := run(&extract.RawResult{Events: []*domain.LogEvent{start, ps}})

		require.Len(t, events, 2)
		assert.Nil(t, start.Start.ProcStart)
	})

	t.Run("unmatched creation stays in the list", func(t *testing.T) {
		ps := procStartEvent(0, "com.tencent.mm", "4321")
		events := run(&extract.RawResult{Events: []*domain.LogEvent{ps}})
		require.Len(t, events, 1)
		assert.Equal(t, domain.KindProcStartOnly, events[0].Kind)
	})
}

func TestAttachDisplayed(t *testing.T) {
	start := startEvent(0, "com.tencent.mm")
	rec := &extract.DisplayedRecord{
		Time:      at(1),
		Component: "com.tencent.mm/.ui.LauncherUI",
		Package:   "com.tencent.mm",
		LatencyMS: 812,
	}

	run(&extract.RawResult{
		Events:    []*domain.LogEvent{start},
		Displayed: []*extract.DisplayedRecord{rec},
	})

	assert.Equal(t, 812, start.Start.DisplayedMS)
}

func TestRunOrdering(t *testing.T) {
	raw := &extract.RawResult{Events: []*domain.LogEvent{
		startEvent(30, "com.b"),
		lmkEvent(10, "com.a", "1"),
		startEvent(0, "com.a"),
	}}

	events := run(raw)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Time.Before(events[i-1].Time))
	}
}

func TestRunIdempotence(t *testing.T) {
	rec := killInfoRecord(1, "4321", "com.tencent.mm", map[string]string{"rss_kb": "123"})
	orphan := killInfoRecord(90, "5", "kswapd0", nil)
	raw := &extract.RawResult{
		Events: []*domain.LogEvent{
			lmkEvent(0, "com.tencent.mm", "4321"),
			startEvent(20, "com.tencent.mm"),
			procStartEvent(21, "com.tencent.mm", "9000"),
			amKillEvent(40, "com.solo.app", "42"),
		},
		KillInfo: []*domain.KillInfoRecord{rec, orphan},
	}

	first := run(raw)

	// Feed the merged output back in with the same records.
	second := New(nil).Run(&extract.RawResult{
		Events:   first,
		KillInfo: []*domain.KillInfoRecord{rec, orphan},
	})

	require.Len(t, second, len(first))
	var lmkAttached int
	for _, ev := range second {
		if ev.Kind == domain.KindLMK && ev.ProcessName == "com.tencent.mm" {
			lmkAttached = len(ev.LMK.KillInfo)
		}
	}
	assert.Equal(t, 1, lmkAttached)
}
