package core

import "time"

// Clock measures elapsed seconds since Start. Update must be called just
// before reading Elapsed; it has no effect on a stopped clock.
type Clock struct {
	startTime time.Time
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime).Seconds()
	}
}

func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
