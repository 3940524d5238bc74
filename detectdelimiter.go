package rtorder

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// SniffSize is the number of leading bytes inspected when guessing the
// delimiter of a CSV-like stream.
const SniffSize = 64 * 1024

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in head, assuming a CSV-like file. If nothing can be detected,
// fallback is returned.
func DetermineDelimiter(head []byte, fallback rune) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(head), '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return fallback
}

// DelimitedReader sniffs the delimiter of r and returns it together with a
// reader positioned at the start of the stream.
func DelimitedReader(r io.Reader, fallback rune) (rune, io.Reader, error) {
	head, full, err := SniffBytes(r, SniffSize)
	if err != nil {
		return fallback, nil, err
	}

	return DetermineDelimiter(head, fallback), full, nil
}
