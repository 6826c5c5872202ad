package normalize

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var dobLayouts = []string{"01/02/2006", "01-02-2006", "2006-01-02"}

// DOB reformats a date of birth to ISO YYYY-MM-DD. The source system shows
// MM/DD/YYYY but operators occasionally type the other two forms in. Input
// that matches none of the layouts is passed through verbatim.
func DOB(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

var genderMap = map[string]string{
	"male":    "M",
	"female":  "F",
	"m":       "M",
	"f":       "F",
	"unknown": "Unknown",
}

// Gender maps a source gender string to its single-letter form. Unmapped
// non-empty values fall back to their upper-cased first character.
func Gender(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if mapped, ok := genderMap[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	return strings.ToUpper(string(first))
}

// Phone strips non-digits and keeps the trailing 10 digits, dropping any
// country code prefix.
func Phone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) > 10 {
		return s[len(s)-10:]
	}
	return s
}

var raceMap = map[string]string{
	"white":                             "White",
	"caucasian":                         "White",
	"black":                             "Black or African American",
	"black or african american":         "Black or African American",
	"african american":                  "Black or African American",
	"asian":                             "Asian",
	"american indian":                   "American Indian or Alaska Native",
	"american indian or alaska native":  "American Indian or Alaska Native",
	"native hawaiian":                   "Native Hawaiian or Other Pacific Islander",
	"pacific islander":                  "Native Hawaiian or Other Pacific Islander",
	"other":                             "Other Race",
	"other race":                        "Other Race",
	"declined":                          "Declined to Specify",
	"patient declined":                  "Declined to Specify",
}

var ethnicityMap = map[string]string{
	"hispanic":                "Hispanic or Latino",
	"hispanic or latino":      "Hispanic or Latino",
	"latino":                  "Hispanic or Latino",
	"not hispanic":            "Not Hispanic or Latino",
	"not hispanic or latino":  "Not Hispanic or Latino",
	"non-hispanic":            "Not Hispanic or Latino",
	"declined":                "Declined to Specify",
	"patient declined":        "Declined to Specify",
}

var languageMap = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"eng":        "en",
	"spa":        "es",
	"french":     "fr",
	"vietnamese": "vi",
	"mandarin":   "zh",
	"chinese":    "zh",
	"arabic":     "ar",
}

func lookup(table map[string]string, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if mapped, ok := table[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	return raw
}

// Race maps a source race value to its canonical form, passing unknown
// values through unchanged.
func Race(raw string) string { return lookup(raceMap, raw) }

// Ethnicity maps a source ethnicity value to its canonical form.
func Ethnicity(raw string) string { return lookup(ethnicityMap, raw) }

// Language maps a source language name to its code.
func Language(raw string) string { return lookup(languageMap, raw) }

// CorrelationID derives a stable per-collection id from the patient
// identifier and collection time. Without a usable identifier it falls back
// to a timestamp-plus-random id so two anonymous collections never collide.
func CorrelationID(patientID string, collectedAt time.Time) string {
	stamp := collectedAt.Format("20060102150405")
	trimmed := strings.TrimSpace(patientID)
	if trimmed == "" {
		return fmt.Sprintf("anon-%s-%s", stamp, uuid.NewString()[:8])
	}
	return fmt.Sprintf("%s-%s", trimmed, stamp)
}
