package planner

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"

	"edv/internal/ekind"
)

// maxScratchUsagePercent refuses to start a render into a scratch
// volume already this full, mirroring nvr's pkg/system.System which
// tracks disk usage percentage for the same reason (avoiding a render
// that fills the disk mid-encode).
const maxScratchUsagePercent = 95

type (
	cpuCountFunc  func(logical bool) (int, error)
	diskUsageFunc func(path string) (*disk.UsageStat, error)
)

// ErrScratchVolumeFull is returned by Preflight when the scratch
// directory's filesystem is already too full to safely start a render.
var ErrScratchVolumeFull = ekind.New(ekind.InvalidOperation, "scratch volume is nearly full")

// preflight checks available CPU and disk before a render starts,
// modeled on nvr's pkg/system.System.update: gather a couple of
// gopsutil readings and turn them into a go/no-go decision plus a
// default worker count, rather than a long-running status loop (the
// core has no background status surface to serve).
type preflight struct {
	cpuCounts cpuCountFunc
	diskUsage diskUsageFunc
}

func newPreflight() *preflight {
	return &preflight{cpuCounts: cpu.Counts, diskUsage: disk.Usage}
}

// Preflight validates that scratchDir's volume has room to work in and
// fills in cfg.Threads from the host's logical CPU count when the
// caller left it unset (<= 0).
func Preflight(_ context.Context, scratchDir string, cfg *RenderConfig) error {
	return newPreflight().run(scratchDir, cfg)
}

func (p *preflight) run(scratchDir string, cfg *RenderConfig) error {
	if cfg.Threads <= 0 {
		n, err := p.cpuCounts(true)
		if err != nil || n <= 0 {
			n = runtime.NumCPU()
		}
		cfg.Threads = n
	}

	usage, err := p.diskUsage(scratchDir)
	if err != nil {
		return fmt.Errorf("planner: preflight: disk usage for %s: %w", scratchDir, err)
	}
	if usage.UsedPercent >= maxScratchUsagePercent {
		return fmt.Errorf("planner: preflight: %s is %.1f%% full: %w", scratchDir, usage.UsedPercent, ErrScratchVolumeFull)
	}
	return nil
}
