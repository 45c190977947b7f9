package agent

import (
	"regexp"
	"strings"
)

// Location phrase extraction. The heuristics cover the phrasings the
// assistant actually sees ("weather in X", "any alerts for X?"); anything
// they miss can fall through to the optional LLM interpreter.

var (
	prepositionRegex = regexp.MustCompile(`(?i)\b(?:in|for|at|near|around)\s+(.+)$`)
	weatherWordRegex = regexp.MustCompile(`(?i)\b(weather|forecast|temperature|conditions?|alerts?|rain|snow|wind|storms?)\b`)
	trailingPunct    = regexp.MustCompile(`[\s\?\!\.\,]+$`)
)

// ExtractLocation pulls a place phrase out of an utterance. The second
// return value is false when no phrase could be extracted.
func ExtractLocation(utterance string) (string, bool) {
	in := strings.TrimSpace(utterance)
	if in == "" {
		return "", false
	}

	if m := prepositionRegex.FindStringSubmatch(in); len(m) == 2 {
		phrase := cleanLocationPhrase(m[1])
		if phrase != "" {
			return phrase, true
		}
	}

	// No preposition: a bare place name like "Lincoln, NE" is its own query,
	// as long as it is not just weather vocabulary.
	if !weatherWordRegex.MatchString(in) {
		phrase := cleanLocationPhrase(in)
		if phrase != "" && len([]rune(phrase)) <= 64 {
			return phrase, true
		}
	}

	return "", false
}

func cleanLocationPhrase(raw string) string {
	phrase := trailingPunct.ReplaceAllString(strings.TrimSpace(raw), "")
	// Strip weather vocabulary that bleeds into the captured phrase,
	// e.g. "alerts for New York please" -> captured "New York please".
	phrase = strings.TrimSpace(strings.TrimSuffix(phrase, "please"))
	phrase = trailingPunct.ReplaceAllString(phrase, "")
	if weatherWordRegex.MatchString(phrase) {
		// "forecast in the morning" — the capture is not a place.
		return ""
	}
	return phrase
}

const locationPrompt = `Extract the place name the user is asking about from the message below.
Reply with the place name only. If the message names no place, reply NONE.

Message: %s`

// parseLocationReply normalizes an interpreter reply into a phrase.
func parseLocationReply(reply string) (string, bool) {
	phrase := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), `"'`))
	if phrase == "" || strings.EqualFold(phrase, "none") {
		return "", false
	}
	if len([]rune(phrase)) > 64 {
		return "", false
	}
	return phrase, true
}
