package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// memoryShare is the part of available memory an export may fill with
// in-flight frames.
const memoryShare = 0.5

// RenderWorkers caps requested parallel render workers so that the frames
// they hold (window frames of frameBytes each, per worker) fit into half of
// the available memory. requested <= 0 means one worker per CPU. The result
// is at least 1.
func RenderWorkers(requested, frameBytes, window int) int {
	workers := requested
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	vm, err := mem.VirtualMemory()
	if err != nil || frameBytes <= 0 || window <= 0 {
		return max(1, workers)
	}

	budget := float64(vm.Available) * memoryShare
	perWorker := float64(frameBytes) * float64(window)
	if fit := int(budget / perWorker); fit < workers {
		workers = fit
	}
	return max(1, workers)
}
