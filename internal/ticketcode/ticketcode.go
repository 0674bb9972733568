// Package ticketcode generates and classifies the two ticket code universes:
// QR-coded physical ticket codes and legacy numeric draw-ticket numbers.
// Everything here is a pure function over strings.
package ticketcode

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// Prefix is the fixed lead segment of every physical ticket code. Printed
// codes must keep this exact shape to stay scannable and typeable.
const Prefix = "OCT"

// alphabet is the character class of the random segments.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	// OCT-AB12CD34-EF56
	qrPattern = regexp.MustCompile(`^` + Prefix + `-[A-Z0-9]{8}-[A-Z0-9]{4}$`)
	// 0289-2397122442-00028362302
	drawPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{10}-[0-9]{11}$`)
)

// Kind is the classification of an arbitrary scanned or typed input.
type Kind string

const (
	KindQR      Kind = "qr"
	KindDraw    Kind = "draw"
	KindUnknown Kind = "unknown"
)

// Normalize trims surrounding whitespace and uppercases the input. All
// classification and lookup happens on normalized codes.
func Normalize(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// Classify maps an input string to exactly one code universe. It is total
// and idempotent: repeated calls with the same input always agree, and
// nothing it is handed can make it panic. Inputs matching neither fixed
// shape come back KindUnknown rather than a guess.
func Classify(input string) Kind {
	code := Normalize(input)
	switch {
	case qrPattern.MatchString(code):
		return KindQR
	case drawPattern.MatchString(code):
		return KindDraw
	default:
		return KindUnknown
	}
}

// Generate produces a fresh physical ticket code of the fixed shape
// PREFIX-XXXXXXXX-XXXX with high-entropy random segments. Collision
// resistance is probabilistic here; the store enforces uniqueness at insert
// time and regenerates on the rare collision.
func Generate() (string, error) {
	long, err := randomSegment(8)
	if err != nil {
		return "", fmt.Errorf("generate ticket code: %w", err)
	}
	short, err := randomSegment(4)
	if err != nil {
		return "", fmt.Errorf("generate ticket code: %w", err)
	}
	return Prefix + "-" + long + "-" + short, nil
}

func randomSegment(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// Modulo bias over a 36-char alphabet is ~0.4% per char, irrelevant for
	// collision resistance at these lengths.
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
