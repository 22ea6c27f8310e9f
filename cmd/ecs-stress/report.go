package main

import (
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/strata/ecs"
)

type Report struct {
	// Configuration
	Duration time.Duration
	Entities int
	Churn    int

	// Results
	TotalTime      time.Duration
	FinalEntities  int
	Snapshots      int
	Stats          ecs.DriverStats
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Storage Engine Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Churn Per Frame:** {{.Churn}}

## Performance Results
- **Total Test Time:** {{.TotalTime}}
- **Frames:** {{.Stats.Frames}}
- **Fixed Steps:** {{.Stats.FixedSteps}}
- **Snapshots Captured:** {{.Snapshots}}
- **Final Entity Count:** {{.FinalEntities}}
- **Update Phase:**
  - **Avg:** {{.Stats.Update.Avg}}
  - **Min:** {{.Stats.Update.Min}}
  - **Max:** {{.Stats.Update.Max}}
- **PrePhysics Phase:**
  - **Avg:** {{.Stats.PrePhysics.Avg}}
  - **Min:** {{.Stats.PrePhysics.Min}}
  - **Max:** {{.Stats.PrePhysics.Max}}
- **PostPhysics Phase:**
  - **Avg:** {{.Stats.PostPhysics.Avg}}
  - **Min:** {{.Stats.PostPhysics.Min}}
  - **Max:** {{.Stats.PostPhysics.Max}}

## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{.MemStatsStart.Sys}} (start) -> {{.MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
