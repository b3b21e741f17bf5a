package planner

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/require"
)

func TestPreflightFillsDefaultThreads(t *testing.T) {
	pf := &preflight{
		cpuCounts: func(bool) (int, error) { return 8, nil },
		diskUsage: func(string) (*disk.UsageStat, error) { return &disk.UsageStat{UsedPercent: 10}, nil },
	}
	cfg := &RenderConfig{}
	require.NoError(t, pf.run("/scratch", cfg))
	require.Equal(t, 8, cfg.Threads)
}

func TestPreflightKeepsExplicitThreads(t *testing.T) {
	pf := &preflight{
		cpuCounts: func(bool) (int, error) { return 8, nil },
		diskUsage: func(string) (*disk.UsageStat, error) { return &disk.UsageStat{UsedPercent: 10}, nil },
	}
	cfg := &RenderConfig{Threads: 2}
	require.NoError(t, pf.run("/scratch", cfg))
	require.Equal(t, 2, cfg.Threads)
}

func TestPreflightRejectsFullScratchVolume(t *testing.T) {
	pf := &preflight{
		cpuCounts: func(bool) (int, error) { return 4, nil },
		diskUsage: func(string) (*disk.UsageStat, error) { return &disk.UsageStat{UsedPercent: 99}, nil },
	}
	err := pf.run("/scratch", &RenderConfig{Threads: 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrScratchVolumeFull))
}
