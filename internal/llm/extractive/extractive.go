// Package extractive is an offline language model that answers with the
// context sentences most related to the question.
package extractive

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"policyrag/internal/domain"
)

// NoAnswer is returned when no context sentence shares a term with the question.
const NoAnswer = "I don't know. The indexed documents do not cover this question."

var sentenceRe = regexp.MustCompile(`(?s)[^.!?\n]+(?:[.!?]+|\n|$)`)

// Answerer ranks context sentences by weighted term overlap with the question.
type Answerer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	maxSentences int
}

var _ domain.LanguageModel = (*Answerer)(nil)

// New returns an answerer selecting at most maxSentences sentences.
func New(maxSentences int) *Answerer {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Answerer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
		maxSentences: maxSentences,
	}
}

func (a *Answerer) Name() string { return "extractive" }

// Complete joins the best matching sentences in their original order.
func (a *Answerer) Complete(ctx context.Context, question string, contexts []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query := map[string]struct{}{}
	for _, tok := range a.tokens(question) {
		if _, stop := a.stopwords[tok]; !stop {
			query[tok] = struct{}{}
		}
	}
	if len(query) == 0 {
		return NoAnswer, nil
	}

	var sentences []string
	seen := map[string]struct{}{}
	for _, c := range contexts {
		for _, s := range sentenceRe.FindAllString(c, -1) {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" {
				continue
			}
			// Overlapping chunks repeat sentences.
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			sentences = append(sentences, s)
		}
	}

	// Rarer query terms across the context weigh more.
	df := map[string]float64{}
	toks := make([][]string, len(sentences))
	for i, s := range sentences {
		toks[i] = a.tokens(s)
		counted := map[string]struct{}{}
		for _, t := range toks[i] {
			if _, ok := query[t]; !ok {
				continue
			}
			if _, ok := counted[t]; ok {
				continue
			}
			counted[t] = struct{}{}
			df[t]++
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	var scores []pair
	n := float64(len(sentences))
	for i := range sentences {
		matched := map[string]struct{}{}
		score := 0.0
		for _, t := range toks[i] {
			if _, ok := query[t]; !ok {
				continue
			}
			if _, ok := matched[t]; ok {
				continue
			}
			matched[t] = struct{}{}
			score += math.Log(1 + n/df[t])
		}
		if score == 0 {
			continue
		}
		// Normalize by sentence length to avoid bias
		score /= math.Sqrt(float64(len(toks[i])))
		scores = append(scores, pair{i, score})
	}
	if len(scores) == 0 {
		return NoAnswer, nil
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	k := a.maxSentences
	if k > len(scores) {
		k = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, k)
	for i := 0; i < k; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, k)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func (a *Answerer) tokens(text string) []string {
	return a.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "when", "where", "why", "how", "do", "does", "did", "i", "me", "my", "we", "our", "you", "your", "there", "any", "all", "must", "may", "have", "has", "had",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
