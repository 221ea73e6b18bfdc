package auth

import (
	"strings"
	"testing"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+7 (999) 123-45-67", "79991234567"},
		{"8 999 123 45 67", "89991234567"},
		{"79991234567", "79991234567"},
		{"tel:+1-202-555-0143", "12025550143"},
		{"", ""},
		{"abc", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhoneNumber(tt.input); got != tt.want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"+7 (999) 123-45-67", "79991234567", true},
		{"1234567890", "1234567890", true},
		{"123456789", "", false},
		{"123456789012345", "123456789012345", true},
		{"1234567890123456", "", false},
	}
	for _, tt := range tests {
		got, ok := ValidatePhoneNumber(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ValidatePhoneNumber(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p, err := GeneratePassword(16)
		if err != nil {
			t.Fatalf("GeneratePassword: %v", err)
		}
		if len(p) != 16 {
			t.Fatalf("len = %d, want 16", len(p))
		}
		for _, c := range p {
			if !strings.ContainsRune(passwordAlphabet, c) {
				t.Fatalf("想定外の文字 %q を含む: %s", c, p)
			}
		}
		if seen[p] {
			t.Fatalf("同じパスワードが生成された: %s", p)
		}
		seen[p] = true
	}
}

func TestGeneratePassword_InvalidLength(t *testing.T) {
	if _, err := GeneratePassword(0); err == nil {
		t.Error("長さ0はエラーになるべき")
	}
}
