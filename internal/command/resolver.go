package command

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/domovox/domovox-core/internal/directory"
)

// Action is what the command asks a device to do.
type Action string

const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
	ActionSet Action = "set"
	ActionGet Action = "get"
)

// offKeywords are checked before every other action table. Speech
// transcription regularly mangles "éteins", hence the loose variants.
var offKeywords = []string{
	"etang", "ethang", "etant", "éteint", "eteindre", "éteins",
	"désactive", "arrête", "éteindre", "désactiver", "arrêter", "off",
}

// actionKeywords maps the remaining actions, probed in order.
var actionKeywords = []struct {
	action   Action
	keywords []string
}{
	{ActionOn, []string{"allume", "active", "démarre", "allumer", "activer", "démarrer", "on"}},
	{ActionSet, []string{"règle", "mets", "ajuste", "configure", "régler", "mettre", "ajuster", "set"}},
	{ActionGet, []string{"donne", "quel", "quelle", "affiche", "montre", "status", "statut", "état"}},
}

// deviceTypes maps canonical device types to their French vocabulary,
// probed in order.
var deviceTypes = []struct {
	deviceType string
	keywords   []string
}{
	{"light", []string{"lumière", "lampe", "éclairage", "led", "ampoule"}},
	{"temperature", []string{"température", "temperature"}},
	{"radiator", []string{"radiateur", "chauffage", "climatisation", "thermostat"}},
	{"blind", []string{"store", "volet", "rideau", "persienne"}},
	{"fan", []string{"ventilateur", "ventilo"}},
	{"outlet", []string{"prise"}},
	{"camera", []string{"caméra", "camera"}},
	{"speaker", []string{"enceinte", "haut-parleur", "musique", "son"}},
}

// roomSynonyms lets English room mentions match French room names.
var roomSynonyms = map[string][]string{
	"salon":         {"living"},
	"cuisine":       {"kitchen"},
	"chambre":       {"bedroom"},
	"salle de bain": {"bathroom", "bain"},
}

// numberPattern extracts the first numeric value, decimal comma or dot.
var numberPattern = regexp.MustCompile(`\b\d+([,.]\d+)?\b`)

// Resolved is the outcome of parsing one command.
type Resolved struct {
	Room       directory.Room
	Action     Action
	DeviceType string
	// Value is set only for ActionSet: a float64, or "on"/"off" for
	// binary devices addressed without a number.
	Value any
}

// FindRoom returns the first room mentioned in the text, or nil.
func FindRoom(text string, rooms []directory.Room) *directory.Room {
	text = normalize(text)
	for i := range rooms {
		name := strings.ToLower(rooms[i].Name)
		if strings.Contains(text, name) {
			return &rooms[i]
		}
		for _, synonym := range roomSynonyms[name] {
			if strings.Contains(text, synonym) {
				return &rooms[i]
			}
		}
	}
	return nil
}

// FindAction returns the action the text asks for, or "". Off-keywords
// win over everything else.
func FindAction(text string) Action {
	text = normalize(text)
	for _, keyword := range offKeywords {
		if hasKeyword(text, keyword) {
			return ActionOff
		}
	}
	for _, entry := range actionKeywords {
		for _, keyword := range entry.keywords {
			if hasKeyword(text, keyword) {
				return entry.action
			}
		}
	}
	return ""
}

// FindDeviceType returns the canonical device type mentioned, or "".
func FindDeviceType(text string) string {
	text = normalize(text)
	for _, entry := range deviceTypes {
		for _, keyword := range entry.keywords {
			if hasKeyword(text, keyword) {
				return entry.deviceType
			}
		}
	}
	return ""
}

// hasKeyword reports whether keyword occurs in text starting at a word
// boundary. A bare substring search would let short keywords fire
// mid-word: "on" inside "salon" or "montre", "son" inside "maison".
// Only the leading boundary is checked so inflected forms still match
// ("quel" finds "quelle", "allume" finds "allumer").
func hasKeyword(text, keyword string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], keyword)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 {
			return true
		}
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
		from = i + len(keyword)
	}
}

// ExtractValue pulls the value parameter for a set command.
//
// Numbers take a decimal comma or dot. Radiator setpoints pass through
// as-is; light values with a percent marker clamp to [0, 100], without
// one they collapse to "on"/"off". Binary devices with no number at
// all default to "on".
func ExtractValue(text, deviceType string) any {
	text = normalize(text)

	if match := numberPattern.FindString(text); match != "" {
		value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
		if err == nil {
			switch deviceType {
			case "light":
				if strings.Contains(text, "%") ||
					strings.Contains(text, "percent") ||
					strings.Contains(text, "pourcent") {
					return clamp(value, 0, 100)
				}
				if value > 0 {
					return "on"
				}
				return "off"
			default:
				return value
			}
		}
	}

	switch deviceType {
	case "light", "fan", "outlet":
		return "on"
	}
	return nil
}

// MatchesDeviceType reports whether a sensor should receive commands
// aimed at the given device type. Beyond the exact match, switches
// count as lights and heating devices answer temperature commands.
func MatchesDeviceType(sensor directory.Sensor, deviceType string) bool {
	sensorType := strings.ToLower(sensor.Type)
	if sensorType == strings.ToLower(deviceType) {
		return true
	}
	if deviceType == "light" && strings.Contains(sensorType, "switch") {
		return true
	}
	if deviceType == "temperature" &&
		(strings.Contains(sensorType, "therm") ||
			strings.Contains(sensorType, "heat") ||
			strings.Contains(sensorType, "radiator")) {
		return true
	}
	return false
}

func normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
