package lot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// listingMarker opens every lot block in the listing text.
const listingMarker = "==================="

var listingHeader = regexp.MustCompile(`LOT \[(\d+)\] \| COUNT: \[(\d+)\]`)

// FormatListing renders lots as the operator-facing listing text:
//
//	=================== LOT [1] | COUNT: [02]
//	00049769791
//	00049769792
//
// Blocks are separated by a blank line.
func FormatListing(lots []Lot) string {
	var b strings.Builder
	for i, l := range lots {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s LOT [%d] | COUNT: [%02d]\n", listingMarker, l.Number, l.Count())
		for _, t := range l.Tokens {
			b.WriteString(t)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ParseListing parses listing text back into lots, in the order they
// appear. Blocks without a header are skipped. A block whose header count
// disagrees with its token lines, a repeated lot number, or a non-numeric
// token line is an error; nothing is returned partially.
func ParseListing(text string) ([]Lot, error) {
	var lots []Lot
	seen := make(map[int]struct{})

	for _, block := range strings.Split(text, listingMarker) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		m := listingHeader.FindStringSubmatch(lines[0])
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil || number < 1 {
			return nil, &ListingError{Problem: fmt.Sprintf("bad lot number %q", m[1])}
		}
		count, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, &ListingError{Lot: number, Problem: fmt.Sprintf("bad count %q", m[2])}
		}
		if _, dup := seen[number]; dup {
			return nil, &ListingError{Lot: number, Problem: "lot number appears twice"}
		}
		seen[number] = struct{}{}

		l := Lot{Number: number}
		for _, line := range lines[1:] {
			token := strings.TrimSpace(line)
			if token == "" {
				continue
			}
			if onlyDigits(token) != token {
				return nil, &ListingError{Lot: number, Problem: fmt.Sprintf("token %q is not numeric", token)}
			}
			l.Tokens = append(l.Tokens, token)
		}
		if l.Count() != count {
			return nil, &ListingError{
				Lot:     number,
				Problem: fmt.Sprintf("header count %d but %d tokens listed", count, l.Count()),
			}
		}
		lots = append(lots, l)
	}
	return lots, nil
}

// LooksLikeListing reports whether text contains at least one lot header.
func LooksLikeListing(text string) bool {
	return listingHeader.MatchString(text)
}
