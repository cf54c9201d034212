package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores returned before the heuristic fallback kicks in
const (
	exactTitleScore  = 1.0
	prefixTitleScore = 0.95
)

// titleSimilarity scores how alike two product titles are on a 0..1 scale.
// Both titles are normalized first. Exact equality scores 1.0; a whole-word
// prefix relationship (base title vs base title plus a variant suffix)
// scores 0.95. Everything else falls through to the best of three
// heuristics: Dice coefficient over word sets, Dice coefficient over
// character bigram sets, and a length-normalized Levenshtein ratio.
func titleSimilarity(a, b string) float64 {
	na := normalizeTitle(a)
	nb := normalizeTitle(b)

	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return exactTitleScore
	}
	if strings.HasPrefix(na, nb+" ") || strings.HasPrefix(nb, na+" ") {
		return prefixTitleScore
	}

	best := diceCoefficient(tokenSet(na), tokenSet(nb))
	if bigram := diceCoefficient(bigramSet(na), bigramSet(nb)); bigram > best {
		best = bigram
	}
	if ratio := levenshteinRatio(na, nb); ratio > best {
		best = ratio
	}
	return best
}

// normalizeTitle lowercases, strips punctuation except hyphens joining two
// alphanumerics ("t-shirt" survives, dangling dashes do not), and collapses
// whitespace. Letters and digits from any script are kept, so non-Latin
// titles survive normalization.
func normalizeTitle(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return ""
	}

	runes := []rune(lower)
	var b strings.Builder
	b.Grow(len(lower))
	for i, r := range runes {
		switch {
		case isTitleAlnum(r):
			b.WriteRune(r)
		case r == '-' && i > 0 && i+1 < len(runes) && isTitleAlnum(runes[i-1]) && isTitleAlnum(runes[i+1]):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func isTitleAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenSet builds the set of whitespace-delimited words in a normalized title
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(s) {
		set[word] = true
	}
	return set
}

// bigramSet builds the set of character bigrams of a normalized title with
// whitespace removed, so word boundaries do not produce noise bigrams.
func bigramSet(s string) map[string]bool {
	squashed := []rune(strings.ReplaceAll(s, " ", ""))
	set := make(map[string]bool)
	for i := 0; i+1 < len(squashed); i++ {
		set[string(squashed[i:i+2])] = true
	}
	return set
}

// diceCoefficient computes 2*|A∩B| / (|A|+|B|) over two sets
func diceCoefficient(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for key := range a {
		if b[key] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

// levenshteinRatio converts edit distance into a 0..1 similarity:
// 1 - distance/max(len). Identical strings score 1, disjoint strings
// approach 0.
func levenshteinRatio(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}
