package playback

import (
	"errors"

	"msgcard/core/caption"
)

// Event Reduce 的输入
type Event interface {
	event()
}

type (
	// Loaded 新记录加载，重置状态。Duration 是加载时基准元素的时长，可能未知
	Loaded struct{ Duration float64 }

	// Toggled 用户点击播放/暂停
	Toggled struct{}

	// TimeUpdated 基准元素的位置和时长
	TimeUpdated struct{ Time, Duration float64 }

	// MetadataLoaded 基准元素时长已知
	MetadataLoaded struct{ Duration float64 }

	// Ended 基准元素自然播放结束
	Ended struct{}

	// VisibilityChanged 页面隐藏或重新可见
	VisibilityChanged struct{ Hidden bool }

	// SeekRequested 从 From 相对跳转 Delta 秒；Absolute 时跳到时长的 Percent%。
	// Duration 是发起请求时读到的基准时长，状态里还没有时长时使用
	SeekRequested struct {
		From     float64
		Delta    float64
		Percent  float64
		Absolute bool
		Duration float64
	}

	// PlaySettled Generation 对应的 play 请求结果
	PlaySettled struct {
		Generation uint64
		Role       Role
		Err        error
	}

	// CaptionsChanged 时间轴已替换，重新计算当前字幕
	CaptionsChanged struct{}
)

func (Loaded) event()            {}
func (Toggled) event()           {}
func (TimeUpdated) event()       {}
func (MetadataLoaded) event()    {}
func (Ended) event()             {}
func (VisibilityChanged) event() {}
func (SeekRequested) event()     {}
func (PlaySettled) event()       {}
func (CaptionsChanged) event()   {}

// CommandKind Reduce 要求执行的副作用类型
type CommandKind int

const (
	CmdPlay CommandKind = iota
	CmdPause
	CmdRewind
	CmdSeek
	CmdReportFailure
)

// Command 需要在元素上执行的副作用
type Command struct {
	Kind       CommandKind
	Generation uint64
	Target     float64
	Role       Role
	Err        error
}

// Reduce 播放状态机唯一的状态转移函数。纯函数，对元素的操作都通过返回的命令完成
func Reduce(s State, tl caption.Timeline, ev Event) (State, []Command) {
	switch e := ev.(type) {
	case Loaded:
		next := State{
			Phase:      PhaseAwaitingInteraction,
			Generation: s.Generation + 1,
		}
		if KnownDuration(e.Duration) {
			next.Duration = e.Duration
		}
		return derive(next, tl), []Command{{Kind: CmdPause}}

	case Toggled:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		if !s.HasUserInteracted {
			s.HasUserInteracted = true
			s.IsPlaying = true
		} else {
			s.IsPlaying = !s.IsPlaying
		}
		return setIntent(s)

	case TimeUpdated:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		s.CurrentTime = e.Time
		if KnownDuration(e.Duration) {
			s.Duration = e.Duration
		}
		return derive(s, tl), nil

	case MetadataLoaded:
		if s.Phase == PhaseIdle || !KnownDuration(e.Duration) {
			return s, nil
		}
		s.Duration = e.Duration
		return derive(s, tl), nil

	case Ended:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		s.CurrentTime = 0
		s = derive(s, tl)
		cmds := []Command{{Kind: CmdRewind}}
		if s.IsPlaying {
			s.Phase = PhaseLooping
			s.Generation++
			cmds = append(cmds, Command{Kind: CmdPlay, Generation: s.Generation})
		} else if s.HasUserInteracted {
			s.Phase = PhasePaused
		}
		return s, cmds

	case VisibilityChanged:
		if !e.Hidden || !s.IsPlaying {
			return s, nil
		}
		s.IsPlaying = false
		return setIntent(s)

	case SeekRequested:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		if !KnownDuration(s.Duration) && KnownDuration(e.Duration) {
			s.Duration = e.Duration
		}
		if !KnownDuration(s.Duration) {
			return s, nil
		}
		target := e.From + e.Delta
		if e.Absolute {
			target = clamp(e.Percent, 0, 100) / 100 * s.Duration
		}
		s.CurrentTime = clamp(target, 0, s.Duration)
		return derive(s, tl), []Command{{Kind: CmdSeek, Target: s.CurrentTime}}

	case PlaySettled:
		if e.Generation != s.Generation {
			return s, nil
		}
		if e.Err == nil {
			if s.Phase == PhaseLooping {
				s.Phase = PhasePlaying
			}
			return s, nil
		}
		if errors.Is(e.Err, ErrPlayAborted) {
			return s, nil
		}
		s.IsPlaying = false
		next, cmds := setIntent(s)
		return next, append([]Command{{Kind: CmdReportFailure, Role: e.Role, Err: e.Err}}, cmds...)

	case CaptionsChanged:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		return derive(s, tl), nil
	}
	return s, nil
}

// setIntent 记录新的播放意图并生成对应命令
func setIntent(s State) (State, []Command) {
	s.Generation++
	if s.IsPlaying {
		s.Phase = PhasePlaying
		return s, []Command{{Kind: CmdPlay, Generation: s.Generation}}
	}
	s.Phase = PhasePaused
	return s, []Command{{Kind: CmdPause}}
}

// derive 根据 CurrentTime 重新计算进度和当前字幕
func derive(s State, tl caption.Timeline) State {
	s.Progress = ProgressPercent(s.CurrentTime, s.Duration)
	s.ActiveCaption = tl.ActiveText(s.CurrentTime)
	return s
}
