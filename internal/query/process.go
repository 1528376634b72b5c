package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/corvid-labs/corpusmind/internal/models"
)

// Processed is the pure-function output of Process: everything downstream
// retrieval and ranking stages need, and nothing they must recompute.
type Processed struct {
	Original  string
	Intent    string
	Source    string
	Keywords  []string
	Entities  []string
	Person    string
	TimeRange *TimeRange
	Filters   models.SearchFilters
	QueryType string
}

type TimeRange struct {
	Start time.Time
	End   time.Time
	Label string
}

const (
	IntentSearchEmail      = "search_email"
	IntentSearchCalendar   = "search_calendar"
	IntentSearchMusic      = "search_music"
	IntentPatternAnalysis  = "pattern_analysis"
	IntentRecommendation   = "recommendation"
	IntentGeneralSearch    = "general_search"

	QueryTypeMemoryRecall  = "memory_recall"
	QueryTypePattern       = "pattern"
	QueryTypeRecommendation = "recommendation"
	QueryTypeGeneral       = "general"
)

// Process parses a raw user query into intent, keywords, entities, person,
// time range, and the filter set the rest of the pipeline consumes. It is a
// pure function: same input, same output, every time.
func Process(now time.Time, rawQuery string) Processed {
	q := strings.TrimSpace(rawQuery)
	lower := strings.ToLower(q)

	p := Processed{Original: q}
	p.Intent = detectIntent(lower)
	p.Source = sourceForIntent(p.Intent)
	p.Keywords = extractKeywords(lower)
	p.Entities = extractEntities(q)
	p.Person = extractPerson(q)
	p.TimeRange = extractTimeRange(now, lower)
	p.QueryType = queryTypeForIntent(p.Intent)

	p.Filters = models.SearchFilters{Source: p.Source}
	if p.Person != "" {
		p.Filters.Author = p.Person
	} else if len(p.Entities) > 0 {
		p.Filters.PotentialAuthor = p.Entities[0]
	}
	if p.TimeRange != nil {
		start := p.TimeRange.Start
		end := p.TimeRange.End
		p.Filters.TimeStart = &start
		p.Filters.TimeEnd = &end
	}
	return p
}

// intentPatterns is the ordered set of regex lists; first match wins. Order
// matters: source-specific intents are tried before the generic fallbacks.
var intentPatterns = []struct {
	intent  string
	pattern *regexp.Regexp
}{
	{IntentSearchEmail, regexp.MustCompile(`\b(email|inbox|message|mail)\b`)},
	{IntentSearchCalendar, regexp.MustCompile(`\b(calendar|meeting|event|schedule|appointment)\b`)},
	{IntentSearchMusic, regexp.MustCompile(`\b(song|track|album|artist|playlist|music)\b`)},
	{IntentPatternAnalysis, regexp.MustCompile(`\b(pattern|trend|how often|frequency|recurring)\b`)},
	{IntentRecommendation, regexp.MustCompile(`\b(recommend|suggest|should i)\b`)},
}

func detectIntent(lower string) string {
	for _, ip := range intentPatterns {
		if ip.pattern.MatchString(lower) {
			return ip.intent
		}
	}
	return IntentGeneralSearch
}

func sourceForIntent(intent string) string {
	switch intent {
	case IntentSearchEmail:
		return models.SourceEmail
	case IntentSearchCalendar:
		return models.SourceCalendar
	case IntentSearchMusic:
		return models.SourceMusic
	default:
		return ""
	}
}

func queryTypeForIntent(intent string) string {
	switch intent {
	case IntentSearchEmail, IntentSearchCalendar, IntentSearchMusic:
		return QueryTypeMemoryRecall
	case IntentPatternAnalysis:
		return QueryTypePattern
	case IntentRecommendation:
		return QueryTypeRecommendation
	default:
		return QueryTypeGeneral
	}
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "about": {}, "have": {}, "was": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "who": {}, "why": {}, "how": {}, "did": {},
	"does": {}, "are": {}, "you": {}, "your": {}, "all": {}, "any": {},
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// extractKeywords lower-cases, tokenizes, removes stop-words, drops words
// shorter than 3 characters, ranks by frequency, returns up to 10.
func extractKeywords(lower string) []string {
	words := wordPattern.FindAllString(lower, -1)
	freq := make(map[string]int)
	order := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, seen := freq[w]; !seen {
			order = append(order, w)
		}
		freq[w]++
	}
	// Stable sort by descending frequency, preserving first-seen order on ties.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && freq[order[j]] > freq[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	if len(order) > 10 {
		order = order[:10]
	}
	return order
}

var entityStopStarters = map[string]struct{}{
	"The": {}, "A": {}, "An": {}, "This": {}, "That": {}, "What": {}, "When": {}, "Where": {}, "Who": {}, "Why": {}, "How": {},
}

var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-zA-Z]+\b`)

func extractEntities(original string) []string {
	matches := capitalizedWord.FindAllString(original, -1)
	out := make([]string, 0, len(matches))
	for i, m := range matches {
		if i == 0 {
			if _, stop := entityStopStarters[m]; stop {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

var personStopWords = map[string]struct{}{
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"me": {}, "him": {}, "her": {}, "us": {}, "them": {}, "the": {}, "a": {}, "an": {},
}

var personPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bdiscussed with\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`),
	regexp.MustCompile(`\bfrom\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`),
	regexp.MustCompile(`\bwith\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`),
	regexp.MustCompile(`\bto\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`),
}

// trailingStopWord matches prepositions that trail a captured name and must be stripped, e.g.
// "Ravi about" -> "Ravi".
var trailingStopWord = regexp.MustCompile(`\s+(about|regarding|on|for|re)$`)

func extractPerson(original string) string {
	for _, pat := range personPatterns {
		m := pat.FindStringSubmatch(original)
		if len(m) < 2 {
			continue
		}
		candidate := trailingStopWord.ReplaceAllString(m[1], "")
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, stop := personStopWords[strings.ToLower(candidate)]; stop {
			continue
		}
		return candidate
	}
	return ""
}
