package core

const AVG_COUNT int = 30

// Metrics keeps rolling averages of CPU frame time and GPU frame time.
type Metrics struct {
	frameAVGCounter    int
	msTimes            [AVG_COUNT]float64
	gpuTimes           [AVG_COUNT]float64
	msAvg              float64
	gpuAvg             float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update records one frame. cpuSeconds is the wall time of the frame,
// gpuSeconds the GPU time read back from timestamps (zero when unknown).
func (m *Metrics) Update(cpuSeconds, gpuSeconds float64) {
	frameMS := cpuSeconds * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	m.gpuTimes[m.frameAVGCounter] = gpuSeconds * 1000.0
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAvg, m.gpuAvg = 0, 0
		for i := 0; i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
			m.gpuAvg += m.gpuTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
		m.gpuAvg /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average CPU frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

// GPUFrameTime is the average GPU frame time in milliseconds.
func (m *Metrics) GPUFrameTime() float64 {
	return m.gpuAvg
}
