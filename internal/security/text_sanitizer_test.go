package security

import "testing"

func TestSanitizeText(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"空文字列", "", ""},
		{"プレーンテキスト", "Alice Smith", "Alice Smith"},
		{"前後の空白", "  Computer Science  ", "Computer Science"},
		{"アポストロフィ", "O'Brien", "O'Brien"},
		{"アンパサンド", "R&D", "R&D"},
		{"scriptタグ", "<script>alert(1)</script>Bob", "Bob"},
		{"インライン要素", "<b>Bold</b> name", "Bold name"},
		{"イベント属性", `<img src=x onerror="alert(1)">Eve`, "Eve"},
		{"日本語", "山田 太郎", "山田 太郎"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	inputs := []string{"<i>x</i> & y", "plain", "<p>para</p>"}
	for _, in := range inputs {
		once := s.SanitizeText(in)
		twice := s.SanitizeText(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
