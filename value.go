package tonegraph

import (
	"math"
	"sync/atomic"
)

const (
	cellDirty    = 1 << 63
	cellRamp     = 1 << 62
	cellFrameMax = 1<<30 - 1
)

// valueCell hands value updates from control goroutines to the audio
// goroutine. Value bits, ramp frames and flags are packed into one word.
type valueCell struct {
	word atomic.Uint64
}

// store publishes a new value. Negative frames keep the endpoint's
// declared ramp.
func (c *valueCell) store(v float32, frames int) {
	w := uint64(math.Float32bits(v)) | cellDirty
	if frames >= 0 {
		if frames > cellFrameMax {
			frames = cellFrameMax
		}
		w |= cellRamp | uint64(frames)<<32
	}
	c.word.Store(w)
}

// take returns the latest unread update.
func (c *valueCell) take() (v float32, frames int, ok bool) {
	if c.word.Load()&cellDirty == 0 {
		return 0, 0, false
	}
	w := c.word.Swap(0)
	if w&cellDirty == 0 {
		return 0, 0, false
	}
	v = math.Float32frombits(uint32(w))
	frames = -1
	if w&cellRamp != 0 {
		frames = int(w>>32) & cellFrameMax
	}
	return v, frames, true
}

// ramp smooths value changes linearly.
type ramp struct {
	cur, target, step float32
	left              int
}

func (r *ramp) reset(v float32) {
	r.cur, r.target, r.step, r.left = v, v, 0, 0
}

func (r *ramp) retarget(target float32, frames int) {
	if frames <= 0 {
		r.reset(target)
		return
	}
	r.target = target
	r.step = (target - r.cur) / float32(frames)
	r.left = frames
}

func (r *ramp) next() float32 {
	if r.left > 0 {
		r.left--
		if r.left == 0 {
			r.cur = r.target
		} else {
			r.cur += r.step
		}
	}
	return r.cur
}
