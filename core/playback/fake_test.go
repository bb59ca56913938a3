package playback

import (
	"context"
	"sync"
)

// fakeElement is a scriptable Element. With manual set, play requests stay pending
// until resolve is called.
type fakeElement struct {
	mu       sync.Mutex
	current  float64
	duration float64
	muted    bool
	loop     bool
	inline   bool
	playing  bool
	manual   bool
	playErr  error

	playCalls  int
	pauseCalls int
	pending    []chan error

	subs   map[int]func(MediaEvent)
	nextID int
}

func newFake(duration float64) *fakeElement {
	return &fakeElement{duration: duration, subs: make(map[int]func(MediaEvent))}
}

func (f *fakeElement) Play(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	if f.manual {
		f.pending = append(f.pending, ch)
		return ch
	}
	if f.playErr == nil {
		f.playing = true
	}
	ch <- f.playErr
	return ch
}

// resolve settles the i-th manual play request.
func (f *fakeElement) resolve(i int, err error) {
	f.mu.Lock()
	ch := f.pending[i]
	if err == nil {
		f.playing = true
	}
	f.mu.Unlock()
	ch <- err
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	f.pauseCalls++
}

func (f *fakeElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeElement) SetCurrentTime(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = seconds
}

func (f *fakeElement) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeElement) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
}

func (f *fakeElement) SetLoop(loop bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loop = loop
}

func (f *fakeElement) SetPlaysInline(inline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inline = inline
}

func (f *fakeElement) Subscribe(fn func(MediaEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeElement) fire(ev MediaEvent) {
	f.mu.Lock()
	subs := make([]func(MediaEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// advance moves the position and raises a timeupdate.
func (f *fakeElement) advance(t float64) {
	f.SetCurrentTime(t)
	f.fire(EventTimeUpdate)
}

func (f *fakeElement) stats() (plays, pauses int, playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playCalls, f.pauseCalls, f.playing
}

func (f *fakeElement) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
