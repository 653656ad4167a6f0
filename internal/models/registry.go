// Package models manages the on-disk store of Vosk language models: a
// registry of known download URLs per language, lazy downloads, and archive
// extraction.
package models

import (
	"path"
	"strings"
)

// smallModels maps language tags to the small model variants. Small models
// are around 50 MB and fit embedded devices; they are the default.
var smallModels = map[string]string{
	"en":    "http://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
	"en-in": "http://alphacephei.com/vosk/models/vosk-model-small-en-in-0.4.zip",
	"cn":    "https://alphacephei.com/vosk/models/vosk-model-small-cn-0.3.zip",
	"ru":    "https://alphacephei.com/vosk/models/vosk-model-small-ru-0.15.zip",
	"fr":    "https://alphacephei.com/vosk/models/vosk-model-small-fr-pguyot-0.3.zip",
	"de":    "https://alphacephei.com/vosk/models/vosk-model-small-de-0.15.zip",
	"es":    "https://alphacephei.com/vosk/models/vosk-model-small-es-0.3.zip",
	"pt":    "https://alphacephei.com/vosk/models/vosk-model-small-pt-0.3.zip",
	"gr":    "https://alphacephei.com/vosk/models/vosk-model-el-gr-0.7.zip",
	"tr":    "https://alphacephei.com/vosk/models/vosk-model-small-tr-0.3.zip",
	"vn":    "https://alphacephei.com/vosk/models/vosk-model-small-vn-0.3.zip",
	"it":    "https://alphacephei.com/vosk/models/vosk-model-small-it-0.4.zip",
	"nl":    "https://alphacephei.com/vosk/models/vosk-model-nl-spraakherkenning-0.6-lgraph.zip",
	"ca":    "https://alphacephei.com/vosk/models/vosk-model-small-ca-0.4.zip",
	"ar":    "https://alphacephei.com/vosk/models/vosk-model-ar-mgb2-0.4.zip",
	"fa":    "https://alphacephei.com/vosk/models/vosk-model-small-fa-0.5.zip",
	"tl":    "https://alphacephei.com/vosk/models/vosk-model-tl-ph-generic-0.6.zip",
}

// largeModels maps language tags to the full-size model variants. Languages
// without a large model fall back to the small table.
var largeModels = map[string]string{
	"en":    "https://alphacephei.com/vosk/models/vosk-model-en-us-aspire-0.2.zip",
	"en-in": "http://alphacephei.com/vosk/models/vosk-model-en-in-0.4.zip",
	"cn":    "https://alphacephei.com/vosk/models/vosk-model-cn-0.1.zip",
	"ru":    "https://alphacephei.com/vosk/models/vosk-model-ru-0.10.zip",
	"fr":    "https://github.com/pguyot/zamia-speech/releases/download/20190930/kaldi-generic-fr-tdnn_f-r20191016.tar.xz",
	"de":    "https://alphacephei.com/vosk/models/vosk-model-de-0.6.zip",
	"nl":    "https://alphacephei.com/vosk/models/vosk-model-nl-spraakherkenning-0.6.zip",
	"fa":    "https://alphacephei.com/vosk/models/vosk-model-fa-0.5.zip",
}

// NormalizeLanguage reduces a BCP-47 tag to the form used as a cache and
// registry key: lowercased, and cut to the primary subtag unless the full
// tag is a registry entry of its own (e.g. "en-IN" stays "en-in").
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return ""
	}
	if _, ok := smallModels[lang]; ok {
		return lang
	}
	base, _, found := strings.Cut(lang, "-")
	if found {
		return base
	}
	return lang
}

// URLForLanguage returns the download URL for a language, or "" when no
// default model exists. The exact tag is tried before the primary subtag.
// With preferSmall false, the large variant is used where one exists.
func URLForLanguage(lang string, preferSmall bool) string {
	table := smallModels
	if !preferSmall {
		table = make(map[string]string, len(smallModels))
		for k, v := range smallModels {
			table[k] = v
		}
		for k, v := range largeModels {
			table[k] = v
		}
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if url, ok := table[lang]; ok {
		return url
	}
	base, _, _ := strings.Cut(lang, "-")
	return table[base]
}

// Languages returns the tags that have a default model, in no particular order.
func Languages() []string {
	langs := make([]string, 0, len(smallModels))
	for lang := range smallModels {
		langs = append(langs, lang)
	}
	return langs
}

// NameFromURL derives the on-disk model name from a download URL: the
// archive basename with archive extensions stripped.
func NameFromURL(url string) string {
	name := path.Base(url)
	for _, ext := range []string{".zip", ".tar.xz", ".tar.gz", ".tgz", ".tar"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	// Fall back to trimming a single extension.
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
