// Package cachekey derives the content address under which resolved audio is stored.
package cachekey

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// Extension is appended to a key to form the object name in a blob store
const Extension = ".mp3"

// Key is the lower-case hex digest identifying a piece of audio
type Key string

func (k Key) String() string {
	return string(k)
}

// Filename is the object name of the key in a blob store
func (k Key) Filename() string {
	return string(k) + Extension
}

// FromFilename parses an object name back into a key
func FromFilename(name string) (Key, bool) {
	hexPart, ok := strings.CutSuffix(name, Extension)
	if !ok || len(hexPart) != hex.EncodedLen(md5.Size) {
		return "", false
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return "", false
	}
	return Key(strings.ToLower(hexPart)), true
}

// Derive computes the key for a (text, voice, speed) triple.
// A single alphabetic word maps to the digest of its lower-case form with voice and
// speed ignored, so every voice shares one dictionary-quality recording. Anything else
// maps to the digest of "<text>-<voice>-<speed>".
func Derive(text, voice string, speed float64) Key {
	text = strings.TrimSpace(text)
	if IsSingleWord(text) {
		return digest(strings.ToLower(text))
	}
	return digest(text + "-" + voice + "-" + FormatSpeed(speed))
}

// IsSingleWord reports whether text is one token made only of ASCII letters.
// Accented words such as "café" are composite so their keys match already stored objects.
func IsSingleWord(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// Split breaks text into whitespace-separated tokens
func Split(text string) []string {
	return strings.Fields(text)
}

// FormatSpeed renders the shortest decimal that round-trips, so 1.0 becomes "1"
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}

func digest(s string) Key {
	sum := md5.Sum([]byte(s))
	return Key(hex.EncodeToString(sum[:]))
}
