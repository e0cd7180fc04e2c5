package client

import (
	"time"

	"knightcam.github.io/camlink/internal/metrics"
)

// Stats is a point-in-time snapshot of connection activity.
type Stats struct {
	FramesIn          int64
	FramesOut         int64
	FramesInRate      float64
	FramesOutRate     float64
	Reconnects        uint64
	HeartbeatFailures uint64
}

type meters struct {
	framesIn   metrics.Meter
	framesOut  metrics.Meter
	reconnects metrics.Counter
	hbFailures metrics.Counter
}

func newMeters() *meters {
	return &meters{
		framesIn:   metrics.NewMeter(time.Minute),
		framesOut:  metrics.NewMeter(time.Minute),
		reconnects: metrics.NewCounter(),
		hbFailures: metrics.NewCounter(),
	}
}

func (m *meters) snapshot() Stats {
	return Stats{
		FramesIn:          m.framesIn.Count(),
		FramesOut:         m.framesOut.Count(),
		FramesInRate:      m.framesIn.Rate(),
		FramesOutRate:     m.framesOut.Rate(),
		Reconnects:        m.reconnects.Count(),
		HeartbeatFailures: m.hbFailures.Count(),
	}
}
