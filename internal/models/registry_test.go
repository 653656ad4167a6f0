package models

import (
	"strings"
	"testing"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"en-IN", "en-in"}, // full tag is its own registry entry
		{"de-DE", "de"},
		{"pt-br", "pt"},
		{" fr ", "fr"},
		{"", ""},
		{"xx-YY", "xx"},
	}
	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestURLForLanguage(t *testing.T) {
	tests := []struct {
		lang        string
		preferSmall bool
		wantPart    string // substring of the expected URL, "" means no URL
	}{
		{"en", true, "vosk-model-small-en-us"},
		{"en", false, "vosk-model-en-us-aspire"},
		{"en-US", true, "vosk-model-small-en-us"},
		{"en-in", true, "vosk-model-small-en-in"},
		{"de", true, "vosk-model-small-de"},
		{"fr", false, "zamia-speech"},
		{"tr", false, "vosk-model-small-tr"}, // no large variant, falls back
		{"zz", true, ""},
	}
	for _, tt := range tests {
		got := URLForLanguage(tt.lang, tt.preferSmall)
		if tt.wantPart == "" {
			if got != "" {
				t.Errorf("URLForLanguage(%q, %v) = %q, want none", tt.lang, tt.preferSmall, got)
			}
			continue
		}
		if !strings.Contains(got, tt.wantPart) {
			t.Errorf("URLForLanguage(%q, %v) = %q, want it to contain %q", tt.lang, tt.preferSmall, got, tt.wantPart)
		}
	}
}

func TestLanguagesCoverRegistry(t *testing.T) {
	langs := Languages()
	if len(langs) != len(smallModels) {
		t.Fatalf("Languages() returned %d tags, registry has %d", len(langs), len(smallModels))
	}
	for _, lang := range langs {
		if URLForLanguage(lang, true) == "" {
			t.Errorf("language %q listed but has no URL", lang)
		}
	}
}

func TestNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip", "vosk-model-small-en-us-0.15"},
		{"https://github.com/pguyot/zamia-speech/releases/download/20190930/kaldi-generic-fr-tdnn_f-r20191016.tar.xz", "kaldi-generic-fr-tdnn_f-r20191016"},
		{"https://example.com/model.tar.gz", "model"},
		{"https://example.com/model.tgz", "model"},
		{"https://example.com/model.tar", "model"},
		{"https://example.com/plain-name", "plain-name"},
	}
	for _, tt := range tests {
		if got := NameFromURL(tt.url); got != tt.want {
			t.Errorf("NameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
