package core

import "time"

// Clock tracks elapsed time since the last Start, in seconds.
type Clock struct {
	startTime time.Time
	Elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Start() {
	c.startTime = time.Now()
	c.Elapsed = 0
}

// Update refreshes Elapsed. Has no effect on a clock that was never started.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.Elapsed = time.Since(c.startTime).Seconds()
	}
}

func (c *Clock) Stop() {
	c.startTime = time.Time{}
}
