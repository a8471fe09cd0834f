package escpos

import "strings"

// common typographic characters with an accepted ASCII substitution
var foldTable = map[rune]string{
	'‘': "'", '’': "'", '‚': "'",
	'“': `"`, '”': `"`, '„': `"`,
	'–': "-", '—': "--", '―': "--",
	'…': "...",
	' ': " ",
	'°': "deg",
	'×': "x",
	'÷': "/",
	'•': "*",
	'‹': "<", '›': ">",
	'«': "<<", '»': ">>",
	'€': "EUR",
	'£': "GBP",
	'©': "(c)",
	'®': "(r)",
	'™': "(tm)",
	'½': "1/2", '¼': "1/4", '¾': "3/4",
	'→': "->", '←': "<-",
}

// Fold reduces text to the printable ASCII subset the firmware is known to
// handle. Characters with a common substitution are transliterated, the
// rest are dropped: a stray byte must never flip the device into another
// encoding mode.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		default:
			if sub, ok := foldTable[r]; ok {
				b.WriteString(sub)
			}
		}
	}
	return b.String()
}
