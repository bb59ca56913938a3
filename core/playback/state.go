package playback

import "math"

// Phase 状态机所处阶段
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingInteraction
	PhasePlaying
	PhasePaused
	PhaseLooping
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingInteraction:
		return "awaiting_interaction"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseLooping:
		return "looping"
	default:
		return "unknown"
	}
}

// State Core 持有的播放状态。
//
// IsPlaying 为 true 时 HasUserInteracted 一定为 true。Progress = CurrentTime/Duration*100，
// 限制在 [0,100]，时长未知时为 0。ActiveCaption 是包含 CurrentTime 的字幕，没有则为 ""。
type State struct {
	Phase             Phase   `json:"phase"`
	IsPlaying         bool    `json:"isPlaying"`
	HasUserInteracted bool    `json:"hasUserInteracted"`
	CurrentTime       float64 `json:"currentTime"`
	Duration          float64 `json:"duration"`
	Progress          float64 `json:"progress"`
	ActiveCaption     string  `json:"activeCaption"`

	// Generation 播放意图每变化一次加一，旧 generation 的 play 结果直接丢弃
	Generation uint64 `json:"generation"`
}

// KnownDuration d 是否是可用的时长
func KnownDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

// ProgressPercent 计算进度百分比
func ProgressPercent(current, duration float64) float64 {
	if !KnownDuration(duration) || math.IsNaN(current) {
		return 0
	}
	return clamp(current/duration*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
