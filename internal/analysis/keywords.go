package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxHeuristicKeywords caps the tokenizer output.
const MaxHeuristicKeywords = 30

var tokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+#]*(?:[./-][A-Za-z0-9+#]+)*`)

// stopWords are capitalized words that show up in job posts but are not skills.
var stopWords = map[string]bool{
	"a": true, "about": true, "ability": true, "an": true, "and": true, "apply": true,
	"bachelor": true, "benefits": true, "company": true, "degree": true, "developer": true,
	"engineer": true, "engineering": true, "experience": true, "familiarity": true,
	"for": true, "full": true, "i": true, "in": true, "job": true, "junior": true,
	"knowledge": true, "lead": true, "must": true, "nice": true, "of": true, "or": true,
	"our": true, "plus": true, "preferred": true, "qualifications": true, "remote": true,
	"requirements": true, "responsibilities": true, "role": true, "senior": true,
	"software": true, "staff": true, "strong": true, "team": true, "the": true,
	"this": true, "to": true, "we": true, "with": true, "work": true, "years": true,
	"you": true, "your": true,
}

// HeuristicKeywords pulls likely skill terms out of free text without a model.
// Terms are ranked by frequency, then by first appearance.
func HeuristicKeywords(text string) []string {
	type candidate struct {
		name  string
		count int
		first int
	}
	found := make(map[string]*candidate)

	for i, loc := range tokenRe.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if !looksLikeSkill(token, sentenceStart(text, loc[0])) {
			continue
		}
		name := NormalizeSkillName(token)
		key := strings.ToLower(name)
		if c, ok := found[key]; ok {
			c.count++
			continue
		}
		found[key] = &candidate{name: name, count: 1, first: i}
	}

	ranked := make([]*candidate, 0, len(found))
	for _, c := range found {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > MaxHeuristicKeywords {
		ranked = ranked[:MaxHeuristicKeywords]
	}
	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.name
	}
	return out
}

func looksLikeSkill(token string, atSentenceStart bool) bool {
	lower := strings.ToLower(token)
	if stopWords[lower] || (len(token) < 2 && token != "C" && token != "R") {
		return false
	}
	capitalized := unicode.IsUpper(rune(token[0]))

	if _, ok := skillNormalizations[lower]; ok {
		return true
	}
	if ambiguousSkills[lower] {
		return capitalized
	}
	if strings.ContainsAny(token, "0123456789+#./") {
		return capitalized || strings.ContainsAny(token, "+#")
	}
	// Inner capitals mark product names and acronyms (GraphQL, AWS).
	for _, r := range token[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return capitalized && !atSentenceStart
}

// sentenceStart reports whether the token at offset begins a sentence, line or bullet.
func sentenceStart(text string, offset int) bool {
	prefix := strings.TrimRight(text[:offset], " \t")
	if prefix == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return strings.ContainsRune(".!?:;\n-*(•", r)
}

// containsTerm reports whether text mentions term as a whole word, case-insensitively.
func containsTerm(lowerText, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for from := 0; ; {
		idx := strings.Index(lowerText[from:], term)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(term)
		if boundary(lowerText, start-1) && boundary(lowerText, end) {
			return true
		}
		from = start + 1
	}
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	ch := rune(text[i])
	return !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '+' && ch != '#'
}
