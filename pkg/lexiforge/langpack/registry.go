package langpack

import (
	"unicode"
	"unicode/utf8"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/translator"
)

// processorRegistry names every text processor a language pack file can
// reference by id. Processors themselves are plain Go closures —
// behavior, not data — so a YAML file selects from this fixed catalog
// rather than declaring new ones.
var processorRegistry = map[string]textproc.Processor{
	"capitalizeFirstLetter": textproc.NewProcessor("capitalizeFirstLetter", textproc.BoolOptions, capitalizeFirstLetter),
	"decapitalize":          textproc.NewProcessor("decapitalize", textproc.BoolOptions, decapitalize),
	"fullwidthToHalfwidth":  textproc.NewProcessor("fullwidthToHalfwidth", textproc.BidirectionalOptions, fullwidthToHalfwidth),
}

// normalizerRegistry names every ReadingNormalizer a language pack file
// can select by name.
var normalizerRegistry = map[string]translator.ReadingNormalizer{
	"identity":           translator.IdentityReadingNormalizer,
	"katakanaToHiragana": translator.KatakanaToHiraganaNormalizer,
}

func capitalizeFirstLetter(text string, opt textproc.Option) string {
	if opt == "false" || text == "" {
		return text
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(r)) + text[size:]
}

func decapitalize(text string, opt textproc.Option) string {
	if opt == "false" || text == "" {
		return text
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToLower(r)) + text[size:]
}

// fullwidthToHalfwidth converts between the ASCII printable range and its
// Unicode fullwidth-forms block (U+FF01-U+FF5E, offset +0xFEE0 from
// ASCII), direct narrowing to halfwidth, inverse widening to fullwidth —
// the mirror-image processor used by Japanese text normalization.
func fullwidthToHalfwidth(text string, opt textproc.Option) string {
	switch opt {
	case "direct":
		return mapRunes(text, func(r rune) rune {
			if r >= 0xFF01 && r <= 0xFF5E {
				return r - 0xFEE0
			}
			return r
		})
	case "inverse":
		return mapRunes(text, func(r rune) rune {
			if r >= 0x21 && r <= 0x7E {
				return r + 0xFEE0
			}
			return r
		})
	default:
		return text
	}
}

func mapRunes(s string, f func(rune) rune) string {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = f(r)
	}
	return string(runes)
}
