package speech

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFindSentenceEnd(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"latin period", "Hello there. And more", len("Hello there.")},
		{"question mark", "Really? Yes", len("Really?")},
		{"cjk full stop", "你好。再见", len("你好。")},
		{"cjk question", "真的吗？是的", len("真的吗？")},
		{"first of several", "One. Two. Three.", len("One.")},
		{"no terminator short", "still typing", -1},
		{"empty", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindSentenceEnd(tt.text); got != tt.want {
				t.Errorf("FindSentenceEnd(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestFindSentenceEndLongTextWithoutTerminator(t *testing.T) {
	text := strings.Repeat("字", longSentenceRunes+1)
	if got := FindSentenceEnd(text); got != len(text) {
		t.Errorf("got %d, want %d (whole text)", got, len(text))
	}
}

func TestSegmenterStreaming(t *testing.T) {
	var seg Segmenter

	if got := seg.Feed("Hello th"); got != nil {
		t.Errorf("partial chunk produced %v", got)
	}
	got := seg.Feed("ere. How are")
	if want := []string{"Hello there."}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	got = seg.Feed(" you? Fine")
	if want := []string{"How are you?"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if rest := seg.Flush(); rest != "Fine" {
		t.Errorf("flush = %q, want Fine", rest)
	}
	if rest := seg.Flush(); rest != "" {
		t.Errorf("second flush = %q, want empty", rest)
	}
}

func TestSegmenterMultipleSentencesInOneChunk(t *testing.T) {
	var seg Segmenter
	got := seg.Feed("第一句。第二句！第三")
	want := []string{"第一句。", "第二句！"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplitForSynthesisShortTextUntouched(t *testing.T) {
	got := SplitForSynthesis("short text.", 300)
	if len(got) != 1 || got[0] != "short text." {
		t.Errorf("got %v", got)
	}
}

func TestSplitForSynthesisSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("六个字的句子。", 10) // 70 runes total
	got := SplitForSynthesis(text, 30)

	for i, part := range got {
		if n := utf8.RuneCountInString(part); n > 30 {
			t.Errorf("part %d has %d runes: %q", i, n, part)
		}
	}
	if joined := strings.Join(got, ""); joined != text {
		t.Errorf("parts lost content:\n%q\n%q", joined, text)
	}
}

func TestSplitForSynthesisCommaFallback(t *testing.T) {
	// One long "sentence" with only commas.
	text := strings.Repeat("七个字的分句，", 8) + "结尾。"
	got := SplitForSynthesis(text, 20)

	for i, part := range got {
		if n := utf8.RuneCountInString(part); n > 20 {
			t.Errorf("part %d has %d runes: %q", i, n, part)
		}
	}
}

func TestSplitForSynthesisHardCut(t *testing.T) {
	text := strings.Repeat("x", 95)
	got := SplitForSynthesis(text, 30)

	if len(got) != 4 {
		t.Fatalf("got %d parts, want 4", len(got))
	}
	for i, part := range got[:3] {
		if len(part) != 30 {
			t.Errorf("part %d length = %d, want 30", i, len(part))
		}
	}
	if len(got[3]) != 5 {
		t.Errorf("last part length = %d, want 5", len(got[3]))
	}
}
