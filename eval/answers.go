package eval

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// CompareMode selects how CompareAnswers matches an agent response against
// the expectation.
type CompareMode string

// Supported comparison modes.
const (
	CompareExact    CompareMode = "exact"
	CompareContains CompareMode = "contains"
	CompareJSON     CompareMode = "json"
	CompareNumeric  CompareMode = "numeric"
	CompareRegex    CompareMode = "regex"
)

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

// CompareAnswers scores an agent's final answer against the expected one.
// Exact and contains compare case-insensitively after trimming; json
// compares decoded values; numeric compares the first number found in each
// string; regex treats the expectation as a case-insensitive pattern. An
// unknown mode scores zero.
func CompareAnswers(actual, expected string, mode CompareMode) float64 {
	actualStr := strings.TrimSpace(actual)
	expectedStr := strings.TrimSpace(expected)

	switch mode {
	case CompareExact, "":
		if strings.EqualFold(actualStr, expectedStr) {
			return 1
		}

	case CompareContains:
		if strings.Contains(strings.ToLower(actualStr), strings.ToLower(expectedStr)) {
			return 1
		}

	case CompareJSON:
		var actualVal, expectedVal any
		if json.Unmarshal([]byte(actualStr), &actualVal) != nil {
			return 0
		}
		if json.Unmarshal([]byte(expectedStr), &expectedVal) != nil {
			return 0
		}
		if reflect.DeepEqual(actualVal, expectedVal) {
			return 1
		}

	case CompareNumeric:
		actualNum := numberPattern.FindString(actualStr)
		expectedNum := numberPattern.FindString(expectedStr)
		if actualNum == "" || expectedNum == "" {
			return 0
		}
		a, errA := strconv.ParseFloat(actualNum, 64)
		e, errE := strconv.ParseFloat(expectedNum, 64)
		if errA == nil && errE == nil && a == e {
			return 1
		}

	case CompareRegex:
		re, err := regexp.Compile("(?i)" + expectedStr)
		if err != nil {
			return 0
		}
		if re.MatchString(actualStr) {
			return 1
		}
	}

	return 0
}
