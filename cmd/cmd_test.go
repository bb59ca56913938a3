package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"msgcard/core/playback"

	"go.uber.org/zap"
)

func TestFormatSeconds(t *testing.T) {
	cases := map[float64]string{
		0:        "00:00:00,000",
		1.5:      "00:00:01,500",
		3725.042: "01:02:05,042",
	}
	for in, want := range cases {
		if got := formatSeconds(in); got != want {
			t.Errorf("formatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.yaml")
	os.WriteFile(path, []byte(`
cards:
  - displayName: Ana
    visualKey: cards/seed/v.mp4
    audioKey: cards/seed/a.mp3
    captionKey: cards/seed/c.srt
    forceVisualMuted: false
  - displayName: Bo
    audioKey: https://cdn.example.com/a.mp3
`), 0o644)

	seed, err := loadSeedFile(path)
	if err != nil {
		t.Fatalf("loadSeedFile: %v", err)
	}
	if seed.CreatedBy != "seed" || len(seed.Cards) != 2 {
		t.Fatalf("seed = %+v", seed)
	}
	if m := seed.Cards[0].ForceVisualMuted; m == nil || *m {
		t.Fatalf("explicit false must be kept, got %v", m)
	}
	if seed.Cards[1].ForceVisualMuted != nil {
		t.Fatal("missing mute must stay unset")
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("cards: []\n"), 0o644)
	if _, err := loadSeedFile(empty); err == nil {
		t.Fatal("expected error for empty seed file")
	}
}

func TestMuteBool(t *testing.T) {
	if muteBool(playback.MuteUnset) != nil {
		t.Fatal("unset must map to nil")
	}
	if b := muteBool(playback.MuteOn); b == nil || !*b {
		t.Fatal("on must map to true")
	}
	if b := muteBool(playback.MuteOff); b == nil || *b {
		t.Fatal("off must map to false")
	}
	for _, m := range []playback.MuteSetting{playback.MuteUnset, playback.MuteOn, playback.MuteOff} {
		if got := playback.MuteFromBool(muteBool(m)); got != m {
			t.Errorf("round trip %v -> %v", m, got)
		}
	}
}

func TestPlayRecordFromFiles(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "c.srt")
	os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0o644)

	playVisual, playAudio, playCaptions, playName, playMute = "clip.mp4", "voice.mp3", srt, "", "off"
	defer func() { playVisual, playAudio, playCaptions, playName, playMute = "", "", "", "", "" }()

	rec, err := playRecord(context.Background(), nil)
	if err != nil {
		t.Fatalf("playRecord: %v", err)
	}
	if rec.VisualKind != "video" || rec.DisplayName != "clip.mp4" || !strings.Contains(rec.CaptionSource, "hi") {
		t.Fatalf("rec = %+v", rec)
	}
	if rec.ForceVisualMuted == nil || *rec.ForceVisualMuted {
		t.Fatal("mute off must be explicit false")
	}

	playVisual, playAudio = "", ""
	if _, err := playRecord(context.Background(), nil); err == nil {
		t.Fatal("expected error without media")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"#", "Text"}, [][]string{{"1", "hello"}, {"2"}}, []columnAlignment{alignRight})
	if !strings.Contains(out, "hello") || !strings.Contains(out, "TEXT") && !strings.Contains(out, "Text") {
		t.Fatalf("table = %s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("no headers should render nothing")
	}
}

func TestWatchCaptionsReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.srt")
	os.WriteFile(path, []byte("1\n00:00:00,000 --> 00:00:01,000\nfirst\n"), 0o644)

	core := playback.New(playback.WithLogger(zap.NewNop()))
	defer core.Close()
	core.Load(playback.Config{CaptionSource: "1\n00:00:00,000 --> 00:00:01,000\nfirst\n"})

	stop, err := watchCaptions(path, core)
	if err != nil {
		t.Fatalf("watchCaptions: %v", err)
	}
	defer stop()

	os.WriteFile(path, []byte("1\n00:00:00,000 --> 00:00:01,000\nsecond\n\n2\n00:00:01,000 --> 00:00:02,000\nthird\n"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(core.Timeline()) == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeline not reloaded: %+v", core.Timeline())
}
