package textutil

import (
	"math"
	"strings"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	signIn, signOut := NewFingerprint("sign in screen"), NewFingerprint("screen sign out")
	tests := []struct {
		name     string
		a, b     *Fingerprint
		min, max float64
	}{
		{"both nil", nil, nil, 0, 0},
		{"one nil", nil, signIn, 0, 0},
		{"zero norm", &Fingerprint{tokens: map[string]float64{}}, signIn, 0, 0},
		{"disjoint", NewFingerprint("login password"), NewFingerprint("printer bluetooth"), 0, 0},
		{"identical", NewFingerprint("network error"), NewFingerprint("Network ERROR"), 1, 1},
		{"partial", signIn, signOut, 0.5, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Fatalf("CosineSimilarity = %v, want [%v, %v]", got, tt.min, tt.max)
			}
			if back := CosineSimilarity(tt.b, tt.a); back != got {
				t.Fatalf("not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "hello hello world" -> hello:2, world:1, norm = sqrt(5)
	fp := NewFingerprint("hello hello world")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, math.Sqrt(5))
	}
	if fp.TokenCount() != 2 {
		t.Errorf("TokenCount() = %d, want 2", fp.TokenCount())
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	if NewFingerprint("") != nil {
		t.Error("expected nil for empty text")
	}
	if NewFingerprint("a b c") != nil {
		t.Error("expected nil for text with only single-rune tokens")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple words", "Sign In", []string{"sign", "in"}},
		{"filters single runes", "a to b", []string{"to"}},
		{"handles punctuation", "Error: API failed!", []string{"error", "api", "failed"}},
		{"handles numbers", "test123 456test", []string{"test123", "456test"}},
		{"keeps tamil signs", "உள்நுழை திரை", []string{"உள்நுழை", "திரை"}},
		{"empty string", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("Tokenize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndelRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"login", "", 0},
		{"login", "login", 1},
		{"abc", "xyz", 0},
		{"settings", "setings", 2 * 7.0 / 15.0},
		{"home", "homes", 2 * 4.0 / 9.0},
	}
	for _, tt := range tests {
		got := IndelRatio(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("IndelRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if rev := IndelRatio(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
			t.Errorf("IndelRatio not symmetric for %q/%q", tt.a, tt.b)
		}
	}
}

func TestIndelRatioOnlyOneForEqualStrings(t *testing.T) {
	pairs := [][2]string{{"sign in", "in sign"}, {"home home", "home"}, {"ab", "ba"}}
	for _, p := range pairs {
		if IndelRatio(p[0], p[1]) >= 1 {
			t.Fatalf("IndelRatio(%q, %q) reached 1 for different strings", p[0], p[1])
		}
	}
}

func TestKeywords(t *testing.T) {
	corpus := []string{"login failed password", "login timeout", "login otp password", "cart total"}
	group := []string{"login password password otp"}
	// login appears in most documents, so otp and password outrank it.
	got := Keywords(corpus, group, 2)
	if strings.Join(got, ",") != "password,otp" {
		t.Fatalf("unexpected keywords: %v", got)
	}
	if Keywords(corpus, nil, 3) != nil {
		t.Fatal("expected nil for empty group")
	}
	if Keywords([]string{"home"}, []string{"home"}, 3) != nil {
		t.Fatal("a term in every document must not be a keyword")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"vc_1", "vc_1"},
		{" screen_login ", "screen_login"},
		{"a/b:c", "a-b-c"},
		{"what?", "what"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct{ in, want string }{
		{"VC_1", "vc_1"},
		{"screen login", "screen_login"},
		{"..", "unknown"},
		{"  ", "unknown"},
		{"திரை", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
