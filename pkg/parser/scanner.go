package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/erain9/pricetime/pkg/core"
)

// Scanner reads orders line by line. Blank lines and lines starting with '#'
// are ignored; malformed lines are handed to the error callback and skipped.
type Scanner struct {
	scanner *bufio.Scanner
	ids     IDSource
	onError func(lineNo int, err error)
	lineNo  int
	order   *core.Order
	skipped int
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithErrorHandler sets the callback invoked for every malformed line
func WithErrorHandler(fn func(lineNo int, err error)) ScannerOption {
	return func(s *Scanner) {
		s.onError = fn
	}
}

// NewScanner creates a Scanner reading from r. ids is called once per
// successfully parsed order.
func NewScanner(r io.Reader, ids IDSource, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		scanner: bufio.NewScanner(r),
		ids:     ids,
		onError: func(int, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next advances to the next valid order. It returns false at end of input or
// on a read error.
func (s *Scanner) Next() bool {
	for s.scanner.Scan() {
		s.lineNo++
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		order, err := ParseOrder(line, s.ids())
		if err != nil {
			s.skipped++
			s.onError(s.lineNo, err)
			continue
		}

		s.order = order
		return true
	}
	s.order = nil
	return false
}

// Order returns the order read by the last call to Next
func (s *Scanner) Order() *core.Order {
	return s.order
}

// LineNo returns the number of the last line read
func (s *Scanner) LineNo() int {
	return s.lineNo
}

// Skipped returns how many malformed lines were skipped
func (s *Scanner) Skipped() int {
	return s.skipped
}

// Err returns the first non-EOF read error
func (s *Scanner) Err() error {
	return s.scanner.Err()
}
