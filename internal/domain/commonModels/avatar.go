package commonModels

import (
	"strings"
	"unicode"
)

// Viseme is one mouth shape on the audio timeline, in seconds. The JSON keys
// match the mouth cues the avatar front-end consumes.
type Viseme struct {
	Shape string  `json:"value"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodAngry    Mood = "angry"
	MoodNervous  Mood = "nervous"
	MoodConfused Mood = "confused"
	MoodNeutral  Mood = "neutral"
)

var Moods = []Mood{MoodHappy, MoodSad, MoodAngry, MoodNervous, MoodConfused, MoodNeutral}

// ParseMood maps a free-form model reply onto the closed mood set using the
// first mood word that appears in it. Anything unrecognised is neutral.
func ParseMood(reply string) Mood {
	words := strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		for _, mood := range Moods {
			if word == string(mood) {
				return mood
			}
		}
	}
	return MoodNeutral
}
