package speech

import (
	"strings"

	"bitbucket.org/creachadair/stringset"
	"golang.org/x/text/language"
)

// DefaultVoice is used for any language without a dedicated voice.
const DefaultVoice = "en"

// voiceCodes is the allow-list of voice codes passed through to the TTS engine.
var voiceCodes = []string{"te", "hi", "ta", "kn", "ml", "bn", "gu"}

var supportedVoices = stringset.New(voiceCodes...)

// SupportedVoices returns the allow-listed voice codes.
func SupportedVoices() []string {
	out := make([]string, len(voiceCodes))
	copy(out, voiceCodes)
	return out
}

// ResolveVoice maps a client language code onto a supported voice code.
// The code is read as a BCP-47 tag so "TE" and "te-IN" both select "te".
// Unknown or malformed codes select DefaultVoice.
func ResolveVoice(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultVoice
	}
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultVoice
	}
	base, _ := tag.Base()
	if supportedVoices.Contains(base.String()) {
		return base.String()
	}
	return DefaultVoice
}
