// Package caption 把字幕文本解析成可按时间查询的时间轴。
//
// 支持 SRT 的块格式:
//
//	1
//	00:00:01,000 --> 00:00:02,500
//	first line
//	second line
//
// 已知限制: 按文档顺序返回，乱序或重叠的块不会排序或修复，ActiveText 返回第一个命中的块。
package caption

import (
	"regexp"
	"strconv"
	"strings"
)

// Span 一条字幕，区间 [Start, End)
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Contains t 是否落在 [Start, End) 内
func (s Span) Contains(t float64) bool {
	return s.Start <= t && t < s.End
}

// Timeline 按文档顺序排列的字幕，Parse 之后不再修改
type Timeline []Span

// Active 返回第一个包含 t 的字幕
func (tl Timeline) Active(t float64) (Span, bool) {
	for _, s := range tl {
		if s.Contains(t) {
			return s, true
		}
	}
	return Span{}, false
}

// ActiveText 当前字幕文本，空档返回 ""
func (tl Timeline) ActiveText(t float64) string {
	s, _ := tl.Active(t)
	return s.Text
}

// End 最大的结束时间，空时间轴返回 0
func (tl Timeline) End() float64 {
	var end float64
	for _, s := range tl {
		if s.End > end {
			end = s.End
		}
	}
	return end
}

var (
	indexLine = regexp.MustCompile(`^\d+$`)
	rangeLine = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)
)

// Parse 解析字幕文本。格式错误的块直接跳过，继续解析下一块；空输入返回空时间轴。
func Parse(source string) Timeline {
	// 很多外部编辑器导出的字幕带 BOM
	source = strings.TrimPrefix(source, "\ufeff")
	if strings.TrimSpace(source) == "" {
		return Timeline{}
	}

	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")
	lines := strings.Split(source, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	timeline := Timeline{}
	i := 0
	for i < len(lines) {
		if !indexLine.MatchString(lines[i]) {
			i++
			continue
		}
		i++

		for i < len(lines) && lines[i] == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		start, end, ok := parseRange(lines[i])
		if !ok {
			i = skipBlock(lines, i)
			continue
		}
		i++

		var text []string
		for i < len(lines) && lines[i] != "" {
			text = append(text, lines[i])
			i++
		}

		timeline = append(timeline, Span{
			Start: start,
			End:   end,
			Text:  strings.Join(text, "\n"),
		})
	}
	return timeline
}

// skipBlock 跳到下一个空行
func skipBlock(lines []string, i int) int {
	for i < len(lines) && lines[i] != "" {
		i++
	}
	return i
}

func parseRange(line string) (float64, float64, bool) {
	m := rangeLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	return timestamp(m[1:5]), timestamp(m[5:9]), true
}

// timestamp [HH, MM, SS, mmm] 转成秒
func timestamp(parts []string) float64 {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return float64(h*3600+m*60+s) + float64(ms)/1000
}
