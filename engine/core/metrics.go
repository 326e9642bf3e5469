package core

import "time"

// FPSCounter reports the average number of Frame calls per second over a
// fixed interval. One instance per render loop; not safe for concurrent use.
type FPSCounter struct {
	count    int
	lastTime time.Time
	interval time.Duration
}

func NewFPSCounter(interval time.Duration) *FPSCounter {
	return &FPSCounter{
		lastTime: time.Now(),
		interval: interval,
	}
}

// Frame records one rendered frame. When the interval has elapsed it
// returns the average frames per second since the last report and true.
func (c *FPSCounter) Frame() (float64, bool) {
	c.count++

	elapsed := time.Since(c.lastTime)
	if elapsed < c.interval {
		return 0, false
	}

	perSecond := float64(c.count) / elapsed.Seconds()
	c.count = 0
	c.lastTime = time.Now()
	return perSecond, true
}
