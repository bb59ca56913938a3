package playback

import "testing"

func TestClassifyMedia(t *testing.T) {
	tests := []struct {
		url  string
		want MediaKind
	}{
		{"", KindNone},
		{"https://cdn.example.com/cards/a.mp4?X-Amz-Expires=900", KindVideo},
		{"https://cdn.example.com/cards/a.MOV", KindVideo},
		{"https://cdn.example.com/video/a", KindVideo},
		{"https://cdn.example.com/cards/a.jpg", KindImage},
		{"https://cdn.example.com/cards/a.webp", KindImage},
		// the substring heuristic misclassifies this one
		{"https://cdn.example.com/video-thumbs/a.jpg", KindVideo},
	}
	for _, tc := range tests {
		if got := ClassifyMedia(tc.url); got != tc.want {
			t.Errorf("ClassifyMedia(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestSelectAuthority(t *testing.T) {
	tests := []struct {
		name     string
		kind     MediaKind
		hasAudio bool
		mute     MuteSetting
		want     Authority
	}{
		{"video with sound", KindVideo, true, MuteOff, AuthorityVideo},
		{"video with sound, no audio", KindVideo, false, MuteOff, AuthorityVideo},
		{"video mute unset", KindVideo, true, MuteUnset, AuthorityAudio},
		{"video muted", KindVideo, true, MuteOn, AuthorityAudio},
		{"image ignores mute", KindImage, true, MuteOff, AuthorityAudio},
		{"image without audio", KindImage, false, MuteUnset, AuthorityNone},
		{"muted video without audio", KindVideo, false, MuteUnset, AuthorityNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectAuthority(tc.kind, tc.hasAudio, tc.mute); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseMuteSetting(t *testing.T) {
	tests := map[string]MuteSetting{
		"":      MuteUnset,
		"unset": MuteUnset,
		"on":    MuteOn,
		"TRUE":  MuteOn,
		"off":   MuteOff,
		"false": MuteOff,
	}
	for in, want := range tests {
		got, err := ParseMuteSetting(in)
		if err != nil || got != want {
			t.Errorf("ParseMuteSetting(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMuteSetting("loud"); err == nil {
		t.Error("expected error for invalid setting")
	}
}

func TestMuteFromBool(t *testing.T) {
	on, off := true, false
	if MuteFromBool(nil) != MuteUnset || MuteFromBool(&on) != MuteOn || MuteFromBool(&off) != MuteOff {
		t.Error("MuteFromBool does not preserve the three states")
	}
}
