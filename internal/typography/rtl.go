package typography

import "unicode"

var rtlRanges = [][2]rune{
	{0x0590, 0x05FF}, // Hebrew
	{0x0600, 0x06FF}, // Arabic
	{0x0700, 0x074F}, // Syriac
	{0x0750, 0x077F}, // Arabic Supplement
	{0x0780, 0x07BF}, // Thaana
	{0x07C0, 0x07FF}, // N'Ko
	{0x08A0, 0x08FF}, // Arabic Extended-A
	{0xFB50, 0xFDFF}, // Arabic Presentation Forms-A
	{0xFE70, 0xFEFF}, // Arabic Presentation Forms-B
}

// IsRTLRune reports whether r belongs to a right-to-left script block.
func IsRTLRune(r rune) bool {
	for _, rg := range rtlRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// IsRTL reports whether the first strongly directional character of s is
// right-to-left. Digits, punctuation and spaces are neutral.
func IsRTL(s string) bool {
	for _, r := range s {
		if IsRTLRune(r) {
			return true
		}
		if unicode.IsLetter(r) {
			return false
		}
	}
	return false
}

// VisualOrder returns word as it is painted left to right: runes of a
// right-to-left word are reversed, anything else is returned unchanged.
func VisualOrder(word string) string {
	if !IsRTL(word) {
		return word
	}
	rs := []rune(word)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return string(rs)
}
