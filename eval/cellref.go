package eval

import "strings"

// CellRef is a parsed spreadsheet cell reference with 0-indexed coordinates.
type CellRef struct {
	Column string
	Row    int
	Col    int
}

// columnIndex converts column letters to a 0-indexed column number:
// A=0, Z=25, AA=26, AZ=51, BA=52.
func columnIndex(letters string) int {
	n := 0
	for _, r := range strings.ToUpper(letters) {
		n = n*26 + int(r-'A') + 1
	}
	return n - 1
}

// ParseCellRef parses a reference like "A1", "B2" or "AA123". Malformed
// references report !ok; callers treat them as mismatches, not errors.
func ParseCellRef(ref string) (CellRef, bool) {
	var letters, digits string
	for i, r := range ref {
		switch {
		case r >= 'a' && r <= 'z':
			letters += strings.ToUpper(string(r))
		case r >= 'A' && r <= 'Z':
			letters += string(r)
		case r >= '0' && r <= '9':
			digits = ref[i:]
		default:
			return CellRef{}, false
		}
		if digits != "" {
			break
		}
	}
	if letters == "" || digits == "" {
		return CellRef{}, false
	}
	row := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return CellRef{}, false
		}
		row = row*10 + int(r-'0')
	}
	return CellRef{Column: letters, Row: row - 1, Col: columnIndex(letters)}, true
}
