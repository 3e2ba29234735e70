package anim

import "time"

// ManualFrames is a FrameSource whose frames are delivered by calling Flush.
// It suits tests and hosts that own their own loop.
type ManualFrames struct {
	pending []func()
	// Requests counts calls to RequestFrame.
	Requests int
}

func (m *ManualFrames) RequestFrame(fn func()) {
	m.Requests++
	m.pending = append(m.pending, fn)
}

// Pending returns the number of callbacks waiting for a frame.
func (m *ManualFrames) Pending() int { return len(m.pending) }

// Flush delivers one frame: every callback pending when it is called runs
// once. It reports whether any callback ran.
func (m *ManualFrames) Flush() bool {
	pending := m.pending
	m.pending = nil
	for _, fn := range pending {
		fn()
	}
	return len(pending) > 0
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func(fn func())

func (f FrameFunc) RequestFrame(fn func()) { f(fn) }

// DefaultFrameInterval paces frames at roughly 60 per second.
const DefaultFrameInterval = 16 * time.Millisecond
