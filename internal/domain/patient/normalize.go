package patient

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical sex values. Extracted document fields fold into exactly one of
// these; anything unrecognized yields no update rather than a guess.
const (
	SexMale         = "Male"
	SexFemale       = "Female"
	SexMaleNeutered = "Male (Neutered)"
	SexFemaleSpayed = "Female (Spayed)"
	SexUnknown      = "Unknown"
)

const kgPerLB = 0.453592

var speciesSynonyms = map[string]string{
	"dog":        "Canine",
	"canine":     "Canine",
	"k9":         "Canine",
	"puppy":      "Canine",
	"cat":        "Feline",
	"feline":     "Feline",
	"kitten":     "Feline",
	"rabbit":     "Rabbit",
	"bunny":      "Rabbit",
	"horse":      "Equine",
	"equine":     "Equine",
	"bird":       "Avian",
	"avian":      "Avian",
	"ferret":     "Ferret",
	"guinea pig": "Guinea Pig",
	"hamster":    "Hamster",
}

// NormalizeSpecies folds species synonyms to a canonical label. The second
// return value is false when the input is not recognized.
func NormalizeSpecies(s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := speciesSynonyms[key]; ok {
		return canonical, true
	}
	return "", false
}

var sexSynonyms = map[string]string{
	"m":             SexMale,
	"male":          SexMale,
	"intact male":   SexMale,
	"male intact":   SexMale,
	"f":             SexFemale,
	"female":        SexFemale,
	"intact female": SexFemale,
	"female intact": SexFemale,

	"mn":             SexMaleNeutered,
	"m/n":            SexMaleNeutered,
	"nm":             SexMaleNeutered,
	"neutered":       SexMaleNeutered,
	"neutered male":  SexMaleNeutered,
	"male neutered":  SexMaleNeutered,
	"castrated":      SexMaleNeutered,
	"castrated male": SexMaleNeutered,

	"fs":            SexFemaleSpayed,
	"f/s":           SexFemaleSpayed,
	"sf":            SexFemaleSpayed,
	"spayed":        SexFemaleSpayed,
	"spayed female": SexFemaleSpayed,
	"female spayed": SexFemaleSpayed,

	"unknown": SexUnknown,
	"u":       SexUnknown,
}

// NormalizeSex folds sex abbreviations to one of the five canonical values.
// The second return value is false when the input is not recognized.
func NormalizeSex(s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := sexSynonyms[key]; ok {
		return canonical, true
	}
	return "", false
}

// Weight holds a normalized weight in both units.
type Weight struct {
	KG float64 `json:"kg"`
	LB float64 `json:"lb"`
}

// NormalizeWeight converts a weight to both kg and lb regardless of which
// unit was supplied. Unit is matched case-insensitively; unrecognized units
// return false.
func NormalizeWeight(value float64, unit string) (Weight, bool) {
	if value <= 0 {
		return Weight{}, false
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kg", "kgs", "kilogram", "kilograms":
		return Weight{KG: value, LB: value * 2.20462}, true
	case "lb", "lbs", "pound", "pounds":
		return Weight{KG: value * kgPerLB, LB: value}, true
	default:
		return Weight{}, false
	}
}

var weightPattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*(kg|kgs|kilograms?|lb|lbs|pounds?)\s*$`)

// ParseWeight parses a free-text weight like "22 lb" or "10.5kg" into a
// normalized Weight. Returns false when the text does not parse.
func ParseWeight(s string) (Weight, bool) {
	m := weightPattern.FindStringSubmatch(s)
	if m == nil {
		return Weight{}, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Weight{}, false
	}
	return NormalizeWeight(value, m[2])
}
