package playback

import (
	"fmt"
	"strings"
)

// MediaKind 画面类型
type MediaKind int

const (
	KindNone MediaKind = iota
	KindImage
	KindVideo
)

func (k MediaKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "none"
	}
}

// ClassifyMedia 根据 URL 判断是视频还是图片。
//
// 只做子串匹配: 整个 URL 里出现 ".mp4"、".mov" 或 "video" 就当作视频，
// 所以 /assets/video-thumbs/a.jpg 也会被判成视频。
func ClassifyMedia(url string) MediaKind {
	if strings.TrimSpace(url) == "" {
		return KindNone
	}
	u := strings.ToLower(url)
	if strings.Contains(u, ".mp4") || strings.Contains(u, ".mov") || strings.Contains(u, "video") {
		return KindVideo
	}
	return KindImage
}

// MuteSetting 卡片的三态静音设置。只有显式的 MuteOff 才让视频带声音，MuteUnset 和 MuteOn 都不会
type MuteSetting int

const (
	MuteUnset MuteSetting = iota
	MuteOn
	MuteOff
)

func (m MuteSetting) String() string {
	switch m {
	case MuteOn:
		return "on"
	case MuteOff:
		return "off"
	default:
		return "unset"
	}
}

// ParseMuteSetting 接受 "on"/"true"、"off"/"false"、""/"unset"
func ParseMuteSetting(s string) (MuteSetting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return MuteUnset, nil
	case "on", "true", "1":
		return MuteOn, nil
	case "off", "false", "0":
		return MuteOff, nil
	}
	return MuteUnset, fmt.Errorf("invalid mute setting %q", s)
}

// MuteFromBool 可选布尔值转 MuteSetting
func MuteFromBool(b *bool) MuteSetting {
	if b == nil {
		return MuteUnset
	}
	if *b {
		return MuteOn
	}
	return MuteOff
}

// Authority 驱动时间、进度和字幕的元素
type Authority int

const (
	AuthorityNone Authority = iota
	AuthorityAudio
	AuthorityVideo
)

func (a Authority) String() string {
	switch a {
	case AuthorityAudio:
		return "audio"
	case AuthorityVideo:
		return "video"
	default:
		return "none"
	}
}

// SelectAuthority 选择时间基准。只有画面是视频且明确要求视频带声音时，视频才是基准
func SelectAuthority(kind MediaKind, hasAudio bool, mute MuteSetting) Authority {
	if kind == KindVideo && mute == MuteOff {
		return AuthorityVideo
	}
	if hasAudio {
		return AuthorityAudio
	}
	return AuthorityNone
}
