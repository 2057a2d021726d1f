package vfs

import "strings"

// ibm437Table maps bytes 0x80-0xFF of IBM code page 437 to their Unicode
// code points. Bytes 0x00-0x7F are identical to ASCII and need no mapping.
// This is the legacy code page that DOS-era zip tooling wrote unmarked
// (general-purpose bit 11 clear) filenames in; spec §4.3 requires
// transcoding those to UTF-8 before an entry name is stored.
var ibm437Table = [128]rune{
	'Ç', 'ü', 'é', 'â', 'ä', 'à', 'å', 'ç', 'ê', 'ë', 'è', 'ï', 'î', 'ì', 'Ä', 'Å',
	'É', 'æ', 'Æ', 'ô', 'ö', 'ò', 'û', 'ù', 'ÿ', 'Ö', 'Ü', '¢', '£', '¥', '₧', 'ƒ',
	'á', 'í', 'ó', 'ú', 'ñ', 'Ñ', 'ª', 'º', '¿', '⌐', '¬', '½', '¼', '¡', '«', '»',
	'░', '▒', '▓', '│', '┤', '╡', '╢', '╖', '╕', '╣', '║', '╗', '╝', '╜', '╛', '┐',
	'└', '┴', '┬', '├', '─', '┼', '╞', '╟', '╚', '╔', '╩', '╦', '╠', '═', '╬', '╧',
	'╨', '╤', '╥', '╙', '╘', '╒', '╓', '╫', '╪', '┘', '┌', '█', '▄', '▌', '▐', '▀',
	'α', 'ß', 'Γ', 'π', 'Σ', 'σ', 'µ', 'τ', 'Φ', 'Θ', 'Ω', 'δ', '∞', 'φ', 'ε', '∩',
	'≡', '±', '≥', '≤', '⌠', '⌡', '÷', '≈', '°', '∙', '·', '√', 'ⁿ', '²', '■', ' ',
}

// decodeIBM437 transcodes a byte string assumed to be IBM437-encoded into
// UTF-8. Every byte maps to exactly one rune, so the output is always
// valid UTF-8 regardless of input.
func decodeIBM437(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))

	for _, c := range b {
		if c < 0x80 {
			sb.WriteByte(c)
		} else {
			sb.WriteRune(ibm437Table[c-0x80])
		}
	}

	return sb.String()
}

// hasHighByte reports whether b contains any byte >= 0x80, the condition
// under which spec §4.3 requires considering IBM437 transcoding at all.
func hasHighByte(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return true
		}
	}

	return false
}
