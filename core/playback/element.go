package playback

import (
	"context"
	"errors"
)

// ErrPlayAborted 播放开始前被 pause 取消。属于正常情况，不会上报
var ErrPlayAborted = errors.New("playback: play request aborted by pause")

// MediaEvent 元素发出的时间通知
type MediaEvent int

const (
	EventTimeUpdate MediaEvent = iota
	EventLoadedMetadata
	EventEnded
)

func (e MediaEvent) String() string {
	switch e {
	case EventTimeUpdate:
		return "timeupdate"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Element 对底层媒体元素（video 或 audio）的封装。
//
// Play 不能阻塞，返回的 channel 只会收到一个值: 开始播放时为 nil，否则为拒绝原因。
// Subscribe 注册时间事件监听，返回取消函数。
type Element interface {
	Play(ctx context.Context) <-chan error
	Pause()
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	SetMuted(muted bool)
	SetLoop(loop bool)
	SetPlaysInline(inline bool)
	Subscribe(fn func(MediaEvent)) (cancel func())
}

// Role 元素在 Core 中的角色
type Role string

const (
	RoleVisual Role = "visual"
	RoleAudio  Role = "audio"
)
