package lot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// maxLineBytes bounds one input line; a pasted carton block of 30 IMEIs is
// far below it.
const maxLineBytes = 1 << 20

// Rejection records one input line the session refused.
type Rejection struct {
	Line  int
	Input string
	Err   *ValidationError
}

func (r Rejection) String() string {
	return fmt.Sprintf("line %d: %s", r.Line, r.Err.Message)
}

// Feed submits every non-blank line read from r, the way an operator would
// at the station. When the active lot is full, it is reset (sealed) before
// the next line is submitted, so a long token list becomes consecutive
// lots. Rejected lines are collected and skipped.
func Feed(s Session, r io.Reader) (Session, []Rejection, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var rejections []Rejection
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) == 0 || isBlank(line) {
			continue
		}
		if s.State() == StateFull {
			s, _ = s.ResetLot()
		}

		next, _, err := s.Submit(line)
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return s, rejections, err
			}
			rejections = append(rejections, Rejection{Line: lineNo, Input: line, Err: verr})
			continue
		}
		s = next
	}
	if err := scanner.Err(); err != nil {
		return s, rejections, fmt.Errorf("failed to read tokens: %w", err)
	}
	return s, rejections, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
