/*
Copyright 2024 Tim St. Pierre
Text encoding for the HD44780 A00 character ROM
*/
package lcd1602

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is written for runes the ROM cannot show.
const Unknown = '?'

// romA00 lists the non-ASCII glyphs of the A00 ROM worth reaching from Go
// strings. 0x5C and 0x7E-0x7F differ from ASCII on this ROM.
var romA00 = map[rune]byte{
	'¥': 0x5C,
	'→': 0x7E,
	'←': 0x7F,
	'α': 0xE0,
	'ä': 0xE1,
	'β': 0xE2,
	'ε': 0xE3,
	'µ': 0xE4,
	'μ': 0xE4,
	'σ': 0xE5,
	'ρ': 0xE6,
	'√': 0xE8,
	'¢': 0xEC,
	'ñ': 0xEE,
	'ö': 0xEF,
	'θ': 0xF2,
	'∞': 0xF3,
	'Ω': 0xF4,
	'ü': 0xF5,
	'Σ': 0xF6,
	'π': 0xF7,
	'÷': 0xFD,
	'█': 0xFF,
	'°': 0xDF,
	'º': 0xDF,
	'·': 0xA5,
}

// Encode converts UTF-8 text to character codes, one byte per rune.
// Runes missing from the ROM lose their accents when that leaves plain
// ASCII, and become Unknown otherwise.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, encodeRune(r))
	}
	return out
}

func encodeRune(r rune) byte {
	if printable(r) {
		return byte(r)
	}
	if b, ok := romA00[r]; ok {
		return b
	}
	folded, _, err := transform.String(stripMarks(), string(r))
	if err == nil && len(folded) == 1 && printable(rune(folded[0])) {
		return folded[0]
	}
	return Unknown
}

// printable reports whether r is ASCII the ROM draws as itself. 0x5C is ¥
// and 0x7E is → on A00.
func printable(r rune) bool {
	return r >= 0x20 && r < 0x7E && r != '\\'
}

// stripMarks returns a fresh transformer each call; transform.Chain keeps
// state and is not safe to share.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
