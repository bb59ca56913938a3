package media

import (
	"context"
	"math"
	"sync"
	"time"

	"msgcard/core/playback"
)

// Clock 虚拟媒体元素。不做解码，只维护一个播放头，播放时按真实时间前进，
// 并像浏览器媒体元素一样发出时间事件。
//
// tick 为 0 时播放头只能通过 Advance 推进（测试用）。
type Clock struct {
	name string
	tick time.Duration
	now  func() time.Time

	mu       sync.Mutex
	duration float64
	current  float64
	playing  bool
	muted    bool
	loop     bool
	inline   bool
	playErr  error
	stop     chan struct{}
	subs     map[int]func(playback.MediaEvent)
	nextSub  int
}

var _ playback.Element = (*Clock)(nil)

// ClockOption Clock 的配置项
type ClockOption func(*Clock)

// WithTick 播放时每隔 d 推进一次
func WithTick(d time.Duration) ClockOption {
	return func(c *Clock) { c.tick = d }
}

// WithName 日志和会话帧中使用的名字
func WithName(name string) ClockOption {
	return func(c *Clock) { c.name = name }
}

// NewClock 创建暂停状态的 Clock，duration <= 0 表示时长未知
func NewClock(duration float64, opts ...ClockOption) *Clock {
	c := &Clock{
		duration: math.Max(duration, 0),
		now:      time.Now,
		subs:     make(map[int]func(playback.MediaEvent)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Clock) Name() string { return c.name }

// Play 开始播放。设置了 FailPlay 时所有请求都会被拒绝
func (c *Clock) Play(ctx context.Context) <-chan error {
	ch := make(chan error, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.playErr != nil:
		ch <- c.playErr
	case ctx.Err() != nil:
		ch <- playback.ErrPlayAborted
	default:
		c.playing = true
		c.startLocked()
		ch <- nil
	}
	return ch
}

// FailPlay 之后的 Play 都以 err 拒绝，模拟自动播放限制或解码失败。传 nil 清除
func (c *Clock) FailPlay(err error) {
	c.mu.Lock()
	c.playErr = err
	c.mu.Unlock()
}

func (c *Clock) Pause() {
	c.mu.Lock()
	c.playing = false
	c.stopLocked()
	c.mu.Unlock()
}

func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetCurrentTime 移动播放头并触发 timeupdate
func (c *Clock) SetCurrentTime(seconds float64) {
	c.mu.Lock()
	c.current = c.clampLocked(seconds)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	emit(subs, playback.EventTimeUpdate)
}

func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetDuration 记录之后才拿到的时长（例如 ffprobe 结果），触发 loadedmetadata
func (c *Clock) SetDuration(seconds float64) {
	c.mu.Lock()
	c.duration = math.Max(seconds, 0)
	c.current = c.clampLocked(c.current)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	emit(subs, playback.EventLoadedMetadata)
}

func (c *Clock) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

func (c *Clock) SetLoop(loop bool) {
	c.mu.Lock()
	c.loop = loop
	c.mu.Unlock()
}

func (c *Clock) SetPlaysInline(inline bool) {
	c.mu.Lock()
	c.inline = inline
	c.mu.Unlock()
}

func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Clock) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Clock) Loop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

func (c *Clock) PlaysInline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inline
}

func (c *Clock) Subscribe(fn func(playback.MediaEvent)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Advance 播放中前进 d。到达结尾时循环模式从头开始，否则停止并触发 ended
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	if !c.playing || d <= 0 {
		c.mu.Unlock()
		return
	}

	events := []playback.MediaEvent{playback.EventTimeUpdate}
	c.current += d.Seconds()
	if c.duration > 0 && c.current >= c.duration {
		if c.loop {
			c.current = math.Mod(c.current, c.duration)
		} else {
			c.current = c.duration
			c.playing = false
			c.stopLocked()
			events = append(events, playback.EventEnded)
		}
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, ev := range events {
		emit(subs, ev)
	}
}

// Close 停止 ticker 并移除所有订阅
func (c *Clock) Close() {
	c.mu.Lock()
	c.playing = false
	c.stopLocked()
	c.subs = make(map[int]func(playback.MediaEvent))
	c.mu.Unlock()
}

func (c *Clock) startLocked() {
	if c.tick <= 0 || c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	go c.run(c.stop)
}

func (c *Clock) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Clock) run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	last := c.now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := c.now()
			c.Advance(now.Sub(last))
			last = now
		}
	}
}

func (c *Clock) clampLocked(seconds float64) float64 {
	if seconds < 0 || math.IsNaN(seconds) {
		return 0
	}
	if c.duration > 0 && seconds > c.duration {
		return c.duration
	}
	return seconds
}

func (c *Clock) subscribersLocked() []func(playback.MediaEvent) {
	subs := make([]func(playback.MediaEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func emit(subs []func(playback.MediaEvent), ev playback.MediaEvent) {
	for _, fn := range subs {
		fn(ev)
	}
}
