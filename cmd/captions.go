package cmd

import (
	"fmt"
	"os"
	"strconv"

	"msgcard/core/caption"

	"github.com/spf13/cobra"
)

var captionsAt float64

var captionsCmd = &cobra.Command{
	Use:   "captions <file|card-id>",
	Short: "解析字幕并以表格显示",
	Long:  `解析本地字幕文件或贺卡的字幕，显示时间轴；--at 查询某一时刻显示的字幕。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, fallback, err := captionSource(cmd, args[0])
		if err != nil {
			return err
		}

		tl := caption.Parse(source)
		if cmd.Flags().Changed("at") {
			text := tl.ActiveText(captionsAt)
			if text == "" {
				text = fallback
			}
			fmt.Println(text)
			return nil
		}

		rows := make([][]string, 0, len(tl))
		for i, span := range tl {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				formatSeconds(span.Start),
				formatSeconds(span.End),
				span.Text,
			})
		}
		fmt.Println(renderTable([]string{"#", "Start", "End", "Text"}, rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignLeft}))
		fmt.Printf("%d captions, ends at %s\n", len(tl), formatSeconds(tl.End()))
		return nil
	},
}

// captionSource 参数是已存在的文件时读取文件，否则按贺卡 id 查询
func captionSource(cmd *cobra.Command, arg string) (string, string, error) {
	if _, err := os.Stat(arg); err == nil {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", "", err
		}
		return string(data), "", nil
	}

	svc, _, closeAll, err := openCards()
	if err != nil {
		return "", "", err
	}
	defer closeAll()

	rec, err := svc.Lookup(cmd.Context(), arg)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", arg, err)
	}
	return rec.CaptionSource, rec.DisplayName, nil
}

func formatSeconds(s float64) string {
	ms := int64(s*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

func init() {
	captionsCmd.Flags().Float64Var(&captionsAt, "at", 0, "查询该秒数显示的字幕")
	rootCmd.AddCommand(captionsCmd)
}
