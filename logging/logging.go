package logging

import (
	"fmt"
	"runtime"
	"time"
)

// Flag selects how chatty the geometry kernels are. Nil keeps them silent,
// Performance makes batch operations report timings and memory through glog,
// and Debug additionally reports per-stage detail.
type Flag int

const (
	Nil Flag = iota
	Performance
	Debug
)

// Mode is consulted directly by the kernels so that a config value doesn't
// need to be threaded through every call.
var Mode Flag = Nil

// MemString summarizes the current heap usage of the process.
func MemString() string {
	ms := runtime.MemStats{}
	runtime.ReadMemStats(&ms)
	return fmt.Sprintf(
		"Alloc - %d MB; Sys - %d MB Integrated - %d MB",
		ms.Alloc>>20, ms.Sys>>20, ms.TotalAlloc>>20,
	)
}

// DurationString formats an elapsed time the way the batch kernels report it.
func DurationString(t0 time.Time) string {
	return fmt.Sprintf("%.3fs", time.Since(t0).Seconds())
}
