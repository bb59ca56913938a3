package session

import (
	"context"
	"sync"
	"time"

	"msgcard/core/caption"
	"msgcard/core/media"
	"msgcard/core/playback"
	"msgcard/logger"
	"msgcard/model"

	"go.uber.org/zap"
)

// DefaultDuration 无法探测时长且没有字幕时使用
const DefaultDuration = 30.0

// DurationProber 探测媒体时长
type DurationProber interface {
	Duration(ctx context.Context, input string) (float64, error)
}

// PlayerOptions 预览播放器配置
type PlayerOptions struct {
	// Tick 为 0 时时钟只能手动推进
	Tick            time.Duration
	Prober          DurationProber
	DefaultDuration float64
	Logger          *zap.Logger
}

// Player 把一条记录装配成可以运行的播放核心，媒体元素由虚拟时钟代替
type Player struct {
	Core   *playback.Core
	Visual *media.Clock
	Audio  *media.Clock
	Record *model.MessageRecord

	log    *zap.Logger
	cancel context.CancelFunc
	probes sync.WaitGroup
}

// NewPlayer 根据记录创建播放器并完成 Load。时长先用字幕结束时间估计，探测结果回来后再更新
func NewPlayer(rec *model.MessageRecord, opts PlayerOptions) *Player {
	log := opts.Logger
	if log == nil {
		log = logger.Named("session")
	}
	fallback := opts.DefaultDuration
	if fallback <= 0 {
		fallback = DefaultDuration
	}
	if end := caption.Parse(rec.CaptionSource).End(); end > 0 {
		fallback = end
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		Core:   playback.New(playback.WithLogger(log.Named("playback"))),
		Record: rec,
		log:    log,
		cancel: cancel,
	}

	kind := playback.ClassifyMedia(rec.VisualURL)
	cfg := playback.Config{
		VisualKind:      kind,
		Mute:            playback.MuteFromBool(rec.ForceVisualMuted),
		CaptionSource:   rec.CaptionSource,
		FallbackCaption: rec.DisplayName,
	}
	if kind == playback.KindVideo {
		p.Visual = media.NewClock(fallback, media.WithTick(opts.Tick), media.WithName(string(playback.RoleVisual)))
		cfg.Visual = p.Visual
	}
	if rec.AudioURL != "" {
		p.Audio = media.NewClock(fallback, media.WithTick(opts.Tick), media.WithName(string(playback.RoleAudio)))
		cfg.Audio = p.Audio
	}
	p.Core.Load(cfg)

	if opts.Prober != nil {
		p.probe(ctx, opts.Prober, p.Visual, rec.VisualURL)
		p.probe(ctx, opts.Prober, p.Audio, rec.AudioURL)
	}
	return p
}

func (p *Player) probe(ctx context.Context, prober DurationProber, clock *media.Clock, url string) {
	if clock == nil || url == "" {
		return
	}
	p.probes.Add(1)
	go func() {
		defer p.probes.Done()
		d, err := prober.Duration(ctx, url)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Warn("failed to probe media duration",
					zap.String("card", p.Record.ID),
					zap.String("role", clock.Name()),
					zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		clock.SetDuration(d)
	}()
}

// WaitProbes 等待时长探测结束
func (p *Player) WaitProbes() {
	p.probes.Wait()
}

// Close 停止探测与时钟，并释放播放核心
func (p *Player) Close() {
	p.cancel()
	p.Core.Close()
	for _, c := range []*media.Clock{p.Visual, p.Audio} {
		if c != nil {
			c.Close()
		}
	}
	p.probes.Wait()
}
