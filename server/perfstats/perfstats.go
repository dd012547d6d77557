// Package perfstats is a single place where we record the performance of the
// expensive per-frame operations, so that it's easy to compare models, model servers,
// and hardware.
package perfstats

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

/*
Typical numbers, 640x480 webcam frame, yolov8n fire/smoke model on a remote CPU server:

Decode JPEG:      ~2 ms
Dual view:        ~1.5 ms (CLAHE dominates)
Classify (x2):    ~90 ms each, mostly network and model time

At one frame every 800ms, the pipeline is idle most of the time. The motion gate
exists to keep the model server idle too.
*/

type PerfStats struct {
	DecodeNanoseconds   atomic.Uint64
	DualViewNanoseconds atomic.Uint64
	ClassifyNanoseconds atomic.Uint64
}

var Stats = PerfStats{}

func Update(stat *atomic.Uint64, value int64) {
	vu := uint64(value)
	// We don't bother about strict correctness here, with CompareAndSwap,
	// because this is just sampled stats, and it's OK to miss one or two samples.
	if stat.Load() == 0 {
		stat.Store(vu)
	} else {
		stat.Store((stat.Load()*63 + vu) >> 6)
	}
}

// Record the time elapsed since start
func Since(stat *atomic.Uint64, start time.Time) {
	Update(stat, time.Since(start).Nanoseconds())
}

func Milliseconds(stat *atomic.Uint64) float64 {
	return float64(stat.Load()) / 1000000
}

func (s *PerfStats) String() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Decode: %0.2f ms, ", Milliseconds(&s.DecodeNanoseconds))
	fmt.Fprintf(b, "DualView: %0.2f ms, ", Milliseconds(&s.DualViewNanoseconds))
	fmt.Fprintf(b, "Classify: %0.2f ms", Milliseconds(&s.ClassifyNanoseconds))
	return b.String()
}
