package prompt

import "strings"

// CharacterID is the stable identifier of a cartoon character.
type CharacterID string

const (
	Doraemon      CharacterID = "doraemon"
	Shinchan      CharacterID = "shinchan"
	MotuPatlu     CharacterID = "motu-patlu"
	LittleKrishna CharacterID = "little-krishna"
	ChottaBheem   CharacterID = "chotta-bheem"
	Rudra         CharacterID = "rudra"
	Generic       CharacterID = "generic"
)

// Character describes how a cartoon character appears in the generated scene.
type Character struct {
	ID          CharacterID
	DisplayName string
	Appearance  string
	Action      string
	Setting     string

	keywords []string // lowercase fragments of the display name used by the legacy matcher
}

var characters = []Character{
	{
		ID:          Doraemon,
		DisplayName: "Doraemon",
		Appearance:  "Doraemon, the round blue robotic cat with a white face and belly, large round eyes, a red nose, white whiskers, no ears, a red collar with a golden bell and round white hands",
		Action:      "clapping his round hands happily and bouncing with joy",
		Setting:     "a bright party room with blue and white balloons, confetti and streamers",
		keywords:    []string{"doraemon", "doremon"},
	},
	{
		ID:          Shinchan,
		DisplayName: "Shinchan",
		Appearance:  "Shinchan, the 5-year-old anime boy with very thick bold black eyebrows, small beady eyes, a red short-sleeved shirt and yellow shorts in chibi proportions",
		Action:      "dancing cheekily with a wide mischievous grin",
		Setting:     "a colourful Japanese-style living room decorated with paper lanterns and balloons",
		keywords:    []string{"shinchan", "shin chan", "shin-chan"},
	},
	{
		ID:          MotuPatlu,
		DisplayName: "Motu Patlu",
		Appearance:  "Motu, a chubby smiling cartoon man in an orange outfit, and Patlu, a thin cartoon man in a yellow outfit with glasses, in simple Indian cartoon style",
		Action:      "waving and cheering together",
		Setting:     "a festive Indian street party with marigold garlands, lights and balloons",
		keywords:    []string{"motu", "patlu"},
	},
	{
		ID:          LittleKrishna,
		DisplayName: "Little Krishna",
		Appearance:  "Little Krishna, a young boy with blue skin, a peacock feather in his hair and a yellow dhoti, holding a flute",
		Action:      "playing his flute and swaying joyfully",
		Setting:     "a glowing garden courtyard with diyas, flowers and floating balloons",
		keywords:    []string{"krishna"},
	},
	{
		ID:          ChottaBheem,
		DisplayName: "Chotta Bheem",
		Appearance:  "Chotta Bheem, a strong young Indian boy with brown skin, black hair and an orange dhoti, with a confident heroic smile",
		Action:      "raising both fists in celebration and jumping",
		Setting:     "a village celebration in Dholakpur with laddoos, bunting and balloons",
		keywords:    []string{"bheem", "bhim"},
	},
	{
		ID:          Rudra,
		DisplayName: "Rudra",
		Appearance:  "Rudra, a young Indian superhero boy in a colourful costume with a flowing cape",
		Action:      "striking a dynamic celebration pose and throwing sparkles",
		Setting:     "a magical party hall with glowing stars, sparkles and balloons",
		keywords:    []string{"rudra"},
	},
}

var generic = Character{
	ID:          Generic,
	DisplayName: "Cartoon Friend",
	Appearance:  "a cheerful cartoon character",
	Action:      "clapping hands happily",
	Setting:     "a festive party background with colourful balloons, confetti and streamers",
}

// legacyAliases maps identifiers used by older form versions to current ones.
var legacyAliases = map[string]CharacterID{
	"doremon":     Doraemon,
	"mottu-patlu": MotuPatlu,
	"motu":        MotuPatlu,
	"rudraa":      Rudra,
	"krishna":     LittleKrishna,
	"bheem":       ChottaBheem,
	"shin-chan":   Shinchan,
}

// Characters returns the known characters in display order.
func Characters() []Character {
	out := make([]Character, len(characters))
	copy(out, characters)
	return out
}

// Lookup resolves an identifier or a display name to a character.
// Unknown inputs resolve to the generic character and ok is false.
func Lookup(id string) (c Character, ok bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		return generic, false
	}

	for _, ch := range characters {
		if string(ch.ID) == key {
			return ch, true
		}
	}

	if alias, found := legacyAliases[key]; found {
		return byID(alias), true
	}

	return matchDisplayName(key)
}

// matchDisplayName is the compatibility path for submissions that carry
// a display name ("Little Krishna", "Doremon") instead of an identifier.
func matchDisplayName(name string) (Character, bool) {
	for _, ch := range characters {
		for _, kw := range ch.keywords {
			if strings.Contains(name, kw) {
				return ch, true
			}
		}
	}
	return generic, false
}

func byID(id CharacterID) Character {
	for _, ch := range characters {
		if ch.ID == id {
			return ch
		}
	}
	return generic
}
