// Package personalize implements the preference-learning core: feature
// extraction from video captions, incremental profile analysis, preference
// scoring of scraped candidates, smart hashtag generation, and hashtag
// diversification across search retries.
package personalize

import (
	"regexp"
	"strings"

	"github.com/scout-labs/tokscout/internal/domain"
)

// Features holds what the extractor derives from a single video.
type Features struct {
	Hashtags []string
	Keywords []string
	Category string // "" when no category matched
}

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`[#@]\w+`)
	nonWordPattern = regexp.MustCompile(`[^\w\s]`)
)

// stopwords excluded from keyword extraction.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the and or but in on at to for of with by from up about into through during before " +
			"after above below between among then once here there when where why how all any " +
			"both each few more most other some such no nor not only own same so than too very " +
			"can will just don should now this that these those is are was were be been being " +
			"have has had do does did would could may might must shall out off over under again " +
			"further down") {
		stopwords[w] = struct{}{}
	}
}

const minKeywordLen = 3

// Extractor derives hashtags, keywords, and a content category from a
// video's caption. All methods are pure and never fail: malformed or empty
// captions yield empty feature sets and no category.
type Extractor struct {
	table CategoryTable
}

// NewExtractor creates an Extractor over the given category table.
func NewExtractor(table CategoryTable) *Extractor {
	return &Extractor{table: table}
}

// Extract derives the full feature set for a video.
func (e *Extractor) Extract(video *domain.CandidateVideo) Features {
	if video == nil {
		return Features{}
	}
	hashtags := e.ExtractHashtags(video.Caption)
	keywords := e.ExtractKeywords(video.Caption)
	return Features{
		Hashtags: hashtags,
		Keywords: keywords,
		Category: e.Categorize(hashtags, keywords),
	}
}

// ExtractHashtags returns all #token substrings of the caption, lowercased
// and deduplicated, preserving first-occurrence order.
func (e *Extractor) ExtractHashtags(caption string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(strings.ToLower(caption), -1)
	var tags []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		tag := m[1]
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// ExtractKeywords returns salient caption tokens: hashtags and mentions
// removed, punctuation stripped, stopwords and short tokens excluded,
// deduplicated in first-occurrence order.
func (e *Extractor) ExtractKeywords(caption string) []string {
	clean := mentionPattern.ReplaceAllString(strings.ToLower(caption), "")
	clean = nonWordPattern.ReplaceAllString(clean, " ")

	var words []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(clean) {
		if len(w) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}

// Categorize matches the video's hashtags and keywords against the category
// table. The category with the most overlapping representative hashtags wins;
// ties go to the category declared earlier in the table. No overlap returns
// the empty string.
func (e *Extractor) Categorize(hashtags, keywords []string) string {
	if len(e.table) == 0 {
		return ""
	}
	tokens := make(map[string]struct{}, len(hashtags)+len(keywords))
	for _, t := range hashtags {
		tokens[t] = struct{}{}
	}
	for _, k := range keywords {
		tokens[k] = struct{}{}
	}

	best := ""
	bestOverlap := 0
	for _, c := range e.table {
		overlap := 0
		for _, tag := range c.Hashtags {
			if _, ok := tokens[tag]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best = c.Name
			bestOverlap = overlap
		}
	}
	return best
}
