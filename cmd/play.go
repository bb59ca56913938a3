package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"msgcard/core/media"
	"msgcard/core/playback"
	"msgcard/core/session"
	"msgcard/logger"
	"msgcard/model"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	playVisual   string
	playAudio    string
	playCaptions string
	playName     string
	playMute     string
	playWatch    bool
	playFor      time.Duration
	playTick     time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play [card-id]",
	Short: "在终端中预览贺卡播放",
	Long: `在终端中运行播放核心，按时间输出字幕与进度。
可以按贺卡 id 播放，也可以用 --visual/--audio/--captions 指定本地文件。
Ctrl-C 会先暂停（等同页面隐藏）再退出。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := playRecord(cmd.Context(), args)
		if err != nil {
			return err
		}

		tick := playTick
		if tick <= 0 {
			tick = cfg.SessionTick
		}
		player := session.NewPlayer(rec, session.PlayerOptions{
			Tick:   tick,
			Prober: media.NewProber(cfg.FFmpegPath),
		})
		defer player.Close()

		fmt.Printf("▶ %s  authority=%s mute=%s\n", rec.DisplayName, player.Core.Authority(), player.Core.RequestedMute())
		player.Core.OnChange(printer())

		if playWatch && playCaptions != "" {
			stop, err := watchCaptions(playCaptions, player.Core)
			if err != nil {
				return err
			}
			defer stop()
		}

		player.Core.ToggleUserInteraction()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		var timeout <-chan time.Time
		if playFor > 0 {
			timeout = time.After(playFor)
		}
		select {
		case <-sig:
		case <-timeout:
		case <-cmd.Context().Done():
		}

		player.Core.SetHidden(true)
		player.Core.Settle()
		fmt.Println("■ paused")
		return nil
	},
}

// printer 只在字幕或播放状态变化时输出
func printer() func(playback.Snapshot) {
	var (
		lastCaption string
		lastPlaying bool
		started     bool
	)
	return func(s playback.Snapshot) {
		if started && s.DisplayCaption == lastCaption && s.IsPlaying == lastPlaying {
			return
		}
		started = true
		lastCaption, lastPlaying = s.DisplayCaption, s.IsPlaying
		state := "⏸"
		if s.IsPlaying {
			state = "▶"
		}
		fmt.Printf("%s %s/%s %5.1f%%  %s\n", state,
			formatSeconds(s.CurrentTime), formatSeconds(s.Duration), s.Progress, s.DisplayCaption)
	}
}

func playRecord(ctx context.Context, args []string) (*model.MessageRecord, error) {
	if len(args) == 1 {
		svc, _, closeAll, err := openCards()
		if err != nil {
			return nil, err
		}
		defer closeAll()
		return svc.Lookup(ctx, args[0])
	}

	if playVisual == "" && playAudio == "" {
		return nil, errors.New("either a card id or --visual/--audio is required")
	}
	mute, err := playback.ParseMuteSetting(playMute)
	if err != nil {
		return nil, err
	}

	rec := &model.MessageRecord{
		ID:               "local",
		VisualURL:        playVisual,
		VisualKind:       playback.ClassifyMedia(playVisual).String(),
		AudioURL:         playAudio,
		DisplayName:      playName,
		ForceVisualMuted: muteBool(mute),
	}
	if rec.DisplayName == "" {
		rec.DisplayName = filepath.Base(firstNonEmpty(playVisual, playAudio))
	}
	if playCaptions != "" {
		data, err := os.ReadFile(playCaptions)
		if err != nil {
			return nil, err
		}
		rec.CaptionSource = string(data)
	}
	return rec, nil
}

// watchCaptions 字幕文件保存后重新解析
func watchCaptions(path string, core *playback.Core) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监听器失败: %w", err)
	}
	// 监听目录，编辑器保存时常常是替换文件
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("监听目录失败: %w", err)
	}

	target := filepath.Clean(path)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				data, err := os.ReadFile(target)
				if err != nil {
					logger.Warn("读取字幕文件失败", logger.String("path", target), logger.ErrorField(err))
					continue
				}
				core.SetCaptionSource(string(data))
				logger.Info("字幕已重新加载", logger.String("path", target), logger.Int("captions", len(core.Timeline())))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("文件监听错误", logger.ErrorField(err))
			}
		}
	}()

	return func() {
		watcher.Close()
		<-done
	}, nil
}

func muteBool(m playback.MuteSetting) *bool {
	var b bool
	switch m {
	case playback.MuteOn:
		b = true
	case playback.MuteOff:
		b = false
	default:
		return nil
	}
	return &b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	playCmd.Flags().StringVar(&playVisual, "visual", "", "图片或视频文件")
	playCmd.Flags().StringVar(&playAudio, "audio", "", "旁白音频文件")
	playCmd.Flags().StringVar(&playCaptions, "captions", "", "字幕文件")
	playCmd.Flags().StringVar(&playName, "name", "", "显示名称，无字幕时作为兜底文本")
	playCmd.Flags().StringVar(&playMute, "mute", "", "视频静音设置 on|off|unset")
	playCmd.Flags().BoolVarP(&playWatch, "watch", "w", false, "字幕文件修改后自动重新加载")
	playCmd.Flags().DurationVar(&playFor, "for", 0, "播放时长后自动停止，0 表示直到 Ctrl-C")
	playCmd.Flags().DurationVar(&playTick, "tick", 0, "时钟刷新间隔，默认使用 SESSION_TICK")
	rootCmd.AddCommand(playCmd)
}
