package core

import (
	"sync"

	"github.com/spaghettifunk/trigon/engine/containers"
)

const AVG_COUNT uint8 = 30

type MetricsState struct {
	// Frame times of the last AVG_COUNT frames, in ms.
	MStimes            *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var metricsMutex sync.Mutex
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	metricsState = &MetricsState{
		MStimes: containers.NewRingQueue[float64](int(AVG_COUNT)),
	}
	return nil
}

// MetricsUpdate records the duration of one frame, in seconds.
func MetricsUpdate(frameElapsedTime float64) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	if metricsState == nil {
		return
	}

	// Calculate frame ms average once the window is full.
	frameMS := frameElapsedTime * 1000.0
	metricsState.MStimes.Push(frameMS)
	if metricsState.MStimes.IsFull() {
		sum := 0.0
		metricsState.MStimes.Each(func(ms float64) { sum += ms })
		metricsState.MSavg = sum / float64(AVG_COUNT)
	}

	// Count all Frames.
	metricsState.Frames++

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}
}

func MetricsFPS() float64 {
	fps, _ := MetricsFrame()
	return fps
}

func MetricsFrameTime() float64 {
	_, ms := MetricsFrame()
	return ms
}

// MetricsFrame returns the last measured frames per second and the rolling
// average frame time in milliseconds.
func MetricsFrame() (float64, float64) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	if metricsState == nil {
		return 0, 0
	}
	return metricsState.FPS, metricsState.MSavg
}
