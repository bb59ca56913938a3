package playback

import (
	"context"
	"sync"

	"msgcard/core/caption"
	"msgcard/logger"

	"go.uber.org/zap"
)

// Config 一条记录的媒体配置
type Config struct {
	// Visual 视频元素。图片卡片或没有画面时为 nil，VisualKind 仍记录画面类型
	Visual     Element
	VisualKind MediaKind
	// Audio 独立的音频元素，没有音频时为 nil
	Audio Element
	Mute  MuteSetting

	CaptionSource   string
	FallbackCaption string
}

// Snapshot 提供给展示层的只读状态
type Snapshot struct {
	State
	Authority      string `json:"authority"`
	Mute           string `json:"mute"`
	DisplayCaption string `json:"displayCaption"`
}

type listener struct {
	id int
	fn func(Snapshot)
}

// 内部事件，在 Reduce 之前由 Core 处理

type fromLoad struct {
	loadID uint64
	ev     Event
}

type replaceCaptions struct {
	source   string
	timeline caption.Timeline
}

func (fromLoad) event()        {}
func (replaceCaptions) event() {}

// targets 一批命令作用的元素集合
type targets struct {
	loadID    uint64
	authority Authority
	visual    Element
	audio     Element
}

func (t targets) authorityElement() Element {
	switch t.authority {
	case AuthorityVideo:
		return t.visual
	case AuthorityAudio:
		return t.audio
	}
	return nil
}

// Core 让画面元素、音频元素和字幕时间轴保持同步。
//
// 事件按到达顺序逐个处理。处理过程中触发的新事件（例如 SetCurrentTime 同步触发的
// timeupdate）会入队，由正在消费队列的 goroutine 继续处理。
type Core struct {
	log *zap.Logger

	mu            sync.Mutex
	state         State
	timeline      caption.Timeline
	captionSource string
	fallback      string
	authority     Authority
	visual        Element
	visualKind    MediaKind
	audio         Element
	mute          MuteSetting
	requestedMute MuteSetting
	loadID        uint64
	unsubscribe   []func()
	closed        bool

	queue    []Event
	draining bool

	listeners    []listener
	nextListener int

	ctx    context.Context
	cancel context.CancelFunc

	// 未完成的 play 请求数，Settle 可以和新请求并发
	inflightMu sync.Mutex
	settled    *sync.Cond
	inflight   int
}

// Option Core 的配置项
type Option func(*Core)

// WithLogger 替换默认的 "playback" logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.log = l
		}
	}
}

// New 创建空闲的 Core，调用 Load 挂载媒体
func New(opts ...Option) *Core {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Core{
		log:      logger.Named("playback"),
		timeline: caption.Timeline{},
		ctx:      ctx,
		cancel:   cancel,
	}
	c.settled = sync.NewCond(&c.inflightMu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 挂载一条记录的媒体。时间基准在这里选定，直到下一次 Load 都不会变
func (c *Core) Load(cfg Config) {
	visual := cfg.Visual
	if cfg.VisualKind != KindVideo {
		visual = nil
	}
	authority := SelectAuthority(cfg.VisualKind, cfg.Audio != nil, cfg.Mute)
	audio := cfg.Audio
	if authority == AuthorityVideo {
		audio = nil
	}
	if visual == nil && authority == AuthorityVideo {
		authority = AuthorityNone
	}
	timeline := caption.Parse(cfg.CaptionSource)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	old := []Element{c.visual, c.audio}
	oldSubs := c.unsubscribe
	c.loadID++
	loadID := c.loadID
	c.visual, c.audio, c.visualKind = visual, audio, cfg.VisualKind
	c.authority = authority
	c.mute, c.requestedMute = cfg.Mute, cfg.Mute
	c.timeline = timeline
	c.captionSource = cfg.CaptionSource
	c.fallback = cfg.FallbackCaption
	c.unsubscribe = nil
	c.mu.Unlock()

	for _, cancel := range oldSubs {
		cancel()
	}
	for _, el := range old {
		if el != nil {
			el.Pause()
		}
	}
	if authority == AuthorityVideo && cfg.Audio != nil {
		cfg.Audio.Pause()
	}

	if visual != nil {
		visual.SetPlaysInline(true)
		visual.SetMuted(authority != AuthorityVideo)
		visual.SetLoop(authority != AuthorityVideo)
	}
	if audio != nil {
		audio.SetMuted(false)
		audio.SetLoop(false)
	}

	var duration float64
	t := targets{loadID: loadID, authority: authority, visual: visual, audio: audio}
	if el := t.authorityElement(); el != nil {
		duration = el.Duration()
		cancel := el.Subscribe(func(ev MediaEvent) {
			c.onMediaEvent(loadID, el, ev)
		})
		c.mu.Lock()
		c.unsubscribe = append(c.unsubscribe, cancel)
		c.mu.Unlock()
	}

	c.log.Info("record loaded",
		zap.String("authority", authority.String()),
		zap.String("visual", cfg.VisualKind.String()),
		zap.String("mute", cfg.Mute.String()),
		zap.Int("captions", len(timeline)))

	c.post(fromLoad{loadID: loadID, ev: Loaded{Duration: duration}})
}

func (c *Core) onMediaEvent(loadID uint64, el Element, ev MediaEvent) {
	var e Event
	switch ev {
	case EventTimeUpdate:
		e = TimeUpdated{Time: el.CurrentTime(), Duration: el.Duration()}
	case EventLoadedMetadata:
		e = MetadataLoaded{Duration: el.Duration()}
	case EventEnded:
		e = Ended{}
	default:
		return
	}
	c.post(fromLoad{loadID: loadID, ev: e})
}

// ToggleUserInteraction 所有皮肤共用的点击处理。第一次调用标记用户已交互并开始播放，之后切换播放/暂停
func (c *Core) ToggleUserInteraction() {
	c.post(Toggled{})
}

// SeekBy 相对跳转 delta 秒，限制在 [0, duration]
func (c *Core) SeekBy(delta float64) {
	from, duration := c.authorityPosition()
	c.post(SeekRequested{From: from, Delta: delta, Duration: duration})
}

// SeekToPercent 跳到时长的 p%
func (c *Core) SeekToPercent(p float64) {
	_, duration := c.authorityPosition()
	c.post(SeekRequested{Percent: p, Absolute: true, Duration: duration})
}

func (c *Core) authorityPosition() (float64, float64) {
	c.mu.Lock()
	el := c.targetsLocked().authorityElement()
	from, duration := c.state.CurrentTime, c.state.Duration
	c.mu.Unlock()
	if el != nil {
		from, duration = el.CurrentTime(), el.Duration()
	}
	return from, duration
}

// SetHidden 页面可见性变化。隐藏时暂停，重新可见不会自动恢复
func (c *Core) SetHidden(hidden bool) {
	c.post(VisibilityChanged{Hidden: hidden})
}

// SetMute 记录静音设置。当前记录的时间基准不变，下一次 Load 才生效
func (c *Core) SetMute(m MuteSetting) {
	c.mu.Lock()
	c.requestedMute = m
	effective := c.mute
	c.mu.Unlock()
	if m != effective {
		c.log.Debug("mute change deferred to next load",
			zap.String("requested", m.String()),
			zap.String("effective", effective.String()))
	}
}

// SetCaptionSource 字幕内容有变化时替换时间轴，并重新计算当前字幕
func (c *Core) SetCaptionSource(source string) {
	c.mu.Lock()
	same := source == c.captionSource
	c.mu.Unlock()
	if same {
		return
	}
	c.post(replaceCaptions{source: source, timeline: caption.Parse(source)})
}

// OnChange 注册回调，每次状态变化后收到快照
func (c *Core) OnChange(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Settle 阻塞到所有未完成的 play 请求都已返回并处理完毕。
// 可以和 ToggleUserInteraction 等调用并发，期间新发起的请求也会被等待。
func (c *Core) Settle() {
	c.inflightMu.Lock()
	for c.inflight > 0 {
		c.settled.Wait()
	}
	c.inflightMu.Unlock()
}

func (c *Core) trackPlay(delta int) {
	c.inflightMu.Lock()
	c.inflight += delta
	if c.inflight == 0 {
		c.settled.Broadcast()
	}
	c.inflightMu.Unlock()
}

// Close 解绑元素，之后的事件全部丢弃
func (c *Core) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.unsubscribe
	els := []Element{c.visual, c.audio}
	c.unsubscribe = nil
	c.queue = nil
	c.mu.Unlock()

	c.cancel()
	for _, cancel := range subs {
		cancel()
	}
	for _, el := range els {
		if el != nil {
			el.Pause()
		}
	}
}

// post 事件入队；没有其他调用在消费队列时由当前调用负责消费
func (c *Core) post(ev Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, ev)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.queue) > 0 && !c.closed {
		next := c.queue[0]
		c.queue = c.queue[1:]

		prev := c.state
		cmds, t := c.applyLocked(next)
		changed := c.state != prev
		snap := c.snapshotLocked()
		ls := append([]listener(nil), c.listeners...)
		c.mu.Unlock()

		c.execute(t, cmds)
		if changed {
			for _, l := range ls {
				l.fn(snap)
			}
		}

		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func (c *Core) applyLocked(ev Event) ([]Command, targets) {
	switch e := ev.(type) {
	case fromLoad:
		if e.loadID != c.loadID {
			return nil, targets{}
		}
		ev = e.ev
	case replaceCaptions:
		c.captionSource = e.source
		c.timeline = e.timeline
		ev = CaptionsChanged{}
	}
	var cmds []Command
	c.state, cmds = Reduce(c.state, c.timeline, ev)
	return cmds, c.targetsLocked()
}

func (c *Core) targetsLocked() targets {
	return targets{loadID: c.loadID, authority: c.authority, visual: c.visual, audio: c.audio}
}

// execute 执行元素副作用，调用时不持有锁
func (c *Core) execute(t targets, cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case CmdPlay:
			c.startPlay(t, cmd.Generation)
		case CmdPause:
			for _, el := range []Element{t.visual, t.audio} {
				if el != nil {
					el.Pause()
				}
			}
		case CmdRewind:
			auth := t.authorityElement()
			if auth != nil {
				auth.SetCurrentTime(0)
			}
			if t.visual != nil && t.visual != auth {
				t.visual.SetCurrentTime(0)
			}
		case CmdSeek:
			if auth := t.authorityElement(); auth != nil {
				auth.SetCurrentTime(cmd.Target)
			}
		case CmdReportFailure:
			c.log.Error("play request rejected",
				zap.String("role", string(cmd.Role)),
				zap.Uint64("loadId", t.loadID),
				zap.Error(cmd.Err))
		}
	}
}

func (c *Core) startPlay(t targets, gen uint64) {
	play := func(role Role, el Element) {
		c.trackPlay(1)
		ch := el.Play(c.ctx)
		go func() {
			defer c.trackPlay(-1)
			select {
			case err := <-ch:
				c.post(PlaySettled{Generation: gen, Role: role, Err: err})
			case <-c.ctx.Done():
			}
		}()
	}
	if t.visual != nil {
		play(RoleVisual, t.visual)
	}
	if t.audio != nil {
		play(RoleAudio, t.audio)
	}
}

// Snapshot 返回当前状态
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Core) snapshotLocked() Snapshot {
	display := c.state.ActiveCaption
	if len(c.timeline) == 0 {
		display = c.fallback
	}
	return Snapshot{
		State:          c.state,
		Authority:      c.authority.String(),
		Mute:           c.mute.String(),
		DisplayCaption: display,
	}
}

func (c *Core) IsPlaying() bool         { return c.Snapshot().IsPlaying }
func (c *Core) HasUserInteracted() bool { return c.Snapshot().HasUserInteracted }
func (c *Core) ActiveCaption() string   { return c.Snapshot().ActiveCaption }
func (c *Core) DisplayCaption() string  { return c.Snapshot().DisplayCaption }
func (c *Core) Progress() float64       { return c.Snapshot().Progress }
func (c *Core) CurrentTime() float64    { return c.Snapshot().CurrentTime }
func (c *Core) Duration() float64       { return c.Snapshot().Duration }

// Authority 最近一次 Load 选定的时间基准
func (c *Core) Authority() Authority {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authority
}

// RequestedMute 最近一次传给 Load 或 SetMute 的静音设置
func (c *Core) RequestedMute() MuteSetting {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestedMute
}

// Timeline 解析后的字幕时间轴
func (c *Core) Timeline() caption.Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline
}

// VisualElement 皮肤绑定到 video 标签的元素，图片卡片为 nil
func (c *Core) VisualElement() Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visual
}

// AudioElement 皮肤绑定到 audio 标签的元素。视频自带声音或没有音频时为 nil
func (c *Core) AudioElement() Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio
}
