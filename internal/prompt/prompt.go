// Package prompt builds the natural-language generation prompt sent to the
// video provider for a given cartoon character.
package prompt

import (
	"fmt"
	"strings"
)

const (
	// DefaultDuration is the clip length requested from the provider, in seconds.
	DefaultDuration = 5
	// AspectRatio is the only aspect ratio the pipeline renders.
	AspectRatio = "16:9"
)

// ValidDuration reports whether the provider accepts the duration.
func ValidDuration(seconds int) bool {
	return seconds == 5 || seconds == 8
}

// Build returns the prompt for the character, child name and optional
// date caption. It has no side effects.
func Build(characterID, childName, dateCaption string) string {
	ch, _ := Lookup(characterID)
	return render(ch, strings.TrimSpace(childName), strings.TrimSpace(dateCaption))
}

func render(ch Character, name, caption string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A high-quality %d-second birthday celebration video in %s. ", DefaultDuration, AspectRatio)

	if ch.ID == Generic {
		fmt.Fprintf(&b, "%s %s on the left. ", capitalize(ch.Appearance), ch.Action)
	} else {
		fmt.Fprintf(&b, "On the left, %s, %s, in authentic cartoon style and clearly recognizable. ", ch.Appearance, ch.Action)
	}

	b.WriteString("A real person standing still in the center behind a birthday cake with flickering candles, face kept photorealistic. ")
	fmt.Fprintf(&b, "Background: %s, with soft glowing party lights and confetti falling. ", ch.Setting)

	birthdayText := fmt.Sprintf("Happy Birthday %s!", name)
	fmt.Fprintf(&b, "IMPORTANT: display large, bold, clearly readable text \"%s\" on the back wall behind the person", birthdayText)
	if caption != "" {
		fmt.Fprintf(&b, ", with a smaller line \"%s\" below it", caption)
	}
	b.WriteString(". The text must be spelled exactly and stay readable for the whole video. ")

	fmt.Fprintf(&b, "Smooth gentle zoom-in. %d seconds, %s.", DefaultDuration, AspectRatio)

	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
