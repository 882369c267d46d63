// Package stats aggregates the merged event list into the summary the
// engine hands its reporting collaborators.
package stats

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/akita-tools/akita/internal/domain"
)

// memSample is one event's system-memory snapshot; nil fields were absent.
type memSample struct {
	memFree   *float64
	filePages *float64
	anonPages *float64
	swapFree  *float64
}

func (s memSample) empty() bool {
	return s.memFree == nil && s.filePages == nil && s.anonPages == nil && s.swapFree == nil
}

// Compute builds the run summary: counts per event kind, per-package
// tallies, and memory-at-kill-time distributions over events carrying
// usable memory fields.
func Compute(events []*domain.LogEvent) *domain.Summary {
	byKind := lo.CountValuesBy(events, func(e *domain.LogEvent) domain.EventKind { return e.Kind })

	sum := &domain.Summary{
		TotalEvents:        len(events),
		StartCount:         byKind[domain.KindStart],
		KillCount:          byKind[domain.KindKill],
		LMKCount:           byKind[domain.KindLMK],
		TrigCount:          byKind[domain.KindTrig],
		SkipCount:          byKind[domain.KindSkip],
		ProcStartOnlyCount: byKind[domain.KindProcStartOnly],
		PerPackage:         map[string]*domain.PackageTally{},
	}

	var memFree, filePages, anonPages, swapFree []float64
	for _, ev := range events {
		if ev.Kind == domain.KindStart && ev.IsSubprocess {
			sum.SubprocessStartCount++
		}

		if tally := sum.PerPackage[ev.ProcessName]; tally == nil {
			sum.PerPackage[ev.ProcessName] = &domain.PackageTally{}
		}
		t := sum.PerPackage[ev.ProcessName]
		switch ev.Kind {
		case domain.KindStart:
			t.Start++
		case domain.KindKill:
			t.Kill++
		case domain.KindLMK:
			t.LMK++
		case domain.KindSkip:
			t.Skip++
		}

		ms := extractMemSample(ev)
		if ms.empty() {
			continue
		}
		appendIf(&memFree, ms.memFree)
		appendIf(&filePages, ms.filePages)
		appendIf(&anonPages, ms.anonPages)
		appendIf(&swapFree, ms.swapFree)
	}

	sum.Memory = domain.MemoryStats{
		MemFree:   Describe(memFree),
		FilePages: Describe(filePages),
		AnonPages: Describe(anonPages),
		SwapFree:  Describe(swapFree),
	}
	return sum
}

// extractMemSample pulls the memory snapshot of a kill/trig event from its
// mem_info bracket, falling back to the attached killinfo for trig and lmk
// events.
func extractMemSample(ev *domain.LogEvent) memSample {
	switch ev.Kind {
	case domain.KindKill, domain.KindTrig:
		if ev.Kill == nil {
			return memSample{}
		}
		s := memSample{
			memFree:   parseKB(ev.Kill.Mem.MemFree),
			filePages: parseKB(ev.Kill.Mem.MemFile),
			anonPages: parseKB(ev.Kill.Mem.MemAnon),
			swapFree:  parseKB(ev.Kill.Mem.MemSwapFree),
		}
		if s.memFree == nil && ev.Kind == domain.KindTrig && ev.Kill.KillInfo != nil {
			return killInfoSample(ev.Kill.KillInfo)
		}
		return s
	case domain.KindLMK:
		if ev.LMK == nil || len(ev.LMK.KillInfo) == 0 {
			return memSample{}
		}
		return killInfoSample(ev.LMK.KillInfo[0])
	default:
		return memSample{}
	}
}

func killInfoSample(rec *domain.KillInfoRecord) memSample {
	return memSample{
		memFree:   parseKB(rec.Get("mem_free_kb")),
		filePages: sumKB(rec.Get("active_file_kb"), rec.Get("inactive_file_kb")),
		anonPages: sumKB(rec.Get("active_anon_kb"), rec.Get("inactive_anon_kb")),
		swapFree:  parseKB(rec.Get("swap_free_kb")),
	}
}

func parseKB(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func sumKB(a, b string) *float64 {
	av, bv := parseKB(a), parseKB(b)
	if av == nil || bv == nil {
		return nil
	}
	v := *av + *bv
	return &v
}

func appendIf(dst *[]float64, v *float64) {
	if v != nil {
		*dst = append(*dst, *v)
	}
}
