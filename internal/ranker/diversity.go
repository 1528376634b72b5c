package ranker

import "strings"

const diversityPrefixChars = 200

// diversify walks candidates in score order, keeping a result only if its
// content prefix overlaps no already-kept result above threshold. Results
// are assumed already sorted best-first.
func diversify(ranked []Ranked, threshold float64) []Ranked {
	kept := make([]Ranked, 0, len(ranked))
	keptWords := make([][]string, 0, len(ranked))

	for _, r := range ranked {
		words := prefixWords(r.Result.Document.Content)
		redundant := false
		for _, kw := range keptWords {
			if jaccard(words, kw) > threshold {
				redundant = true
				break
			}
		}
		if redundant {
			continue
		}
		kept = append(kept, r)
		keptWords = append(keptWords, words)
	}
	return kept
}

func prefixWords(content string) []string {
	prefix := content
	if len(prefix) > diversityPrefixChars {
		prefix = prefix[:diversityPrefixChars]
	}
	return strings.Fields(strings.ToLower(prefix))
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}
	var intersection int
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
