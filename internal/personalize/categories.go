package personalize

import (
	"github.com/scout-labs/tokscout/internal/domain"
)

// Category maps a content category to its representative hashtags.
type Category struct {
	Name     string
	Hashtags []string
}

// CategoryTable is an ordered category list. Declared order is priority
// order: when a video overlaps several categories equally, the earlier
// category wins.
type CategoryTable []Category

// DefaultCategoryTable returns the built-in category table. Deployments can
// replace it with an externally supplied table via configuration.
func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		{Name: "trending", Hashtags: []string{"fyp", "foryou", "viral", "trending", "xyzbca", "explore", "recommended", "blowthisup"}},
		{Name: "entertainment", Hashtags: []string{"funny", "comedy", "memes", "pranks", "jokes", "humor", "lol", "hilarious"}},
		{Name: "music_dance", Hashtags: []string{"music", "dance", "singing", "dancing", "musicvideo", "song", "cover", "performer"}},
		{Name: "lifestyle", Hashtags: []string{"fashion", "beauty", "makeup", "ootd", "style", "aesthetic", "skincare", "glowup"}},
		{Name: "food", Hashtags: []string{"food", "cooking", "recipe", "foodie", "baking", "chef", "cookingtips", "mealprep", "tasty"}},
		{Name: "tech", Hashtags: []string{"tech", "technology", "gadgets", "ai", "coding", "programming", "developer", "software"}},
		{Name: "fitness", Hashtags: []string{"fitness", "workout", "gym", "health", "exercise", "training", "yoga", "strong"}},
		{Name: "travel", Hashtags: []string{"travel", "vacation", "wanderlust", "adventure", "hiking", "nature", "destination", "backpacking"}},
		{Name: "pets", Hashtags: []string{"pets", "dogs", "cats", "animals", "cute", "puppy", "kitten", "doggo"}},
		{Name: "gaming", Hashtags: []string{"gaming", "gamer", "videogames", "twitch", "esports", "minecraft", "fortnite", "gameplay"}},
		{Name: "diy_crafts", Hashtags: []string{"diy", "crafts", "art", "creative", "handmade", "painting", "drawing", "artist"}},
		{Name: "sports", Hashtags: []string{"sports", "football", "basketball", "soccer", "tennis", "baseball", "athletics"}},
		{Name: "finance", Hashtags: []string{"money", "investing", "stocks", "crypto", "budgeting", "savings", "entrepreneur", "business"}},
		{Name: "books", Hashtags: []string{"books", "reading", "booktok", "author", "novel", "poetry", "literature"}},
		{Name: "satisfying", Hashtags: []string{"satisfying", "asmr", "relaxing", "calm", "therapeutic", "oddlysatisfying"}},
		{Name: "nostalgia", Hashtags: []string{"nostalgia", "throwback", "90s", "2000s", "childhood", "retro", "vintage"}},
	}
}

// Validate checks the table for structural problems: empty tables, unnamed
// categories, duplicate names.
func (t CategoryTable) Validate() error {
	if len(t) == 0 {
		return domain.ErrEmptyCategoryMap
	}
	seen := make(map[string]struct{}, len(t))
	for _, c := range t {
		if c.Name == "" {
			return domain.NewDomainError(domain.ErrCodeConfiguration, "category table entry has empty name")
		}
		if _, dup := seen[c.Name]; dup {
			return domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "duplicate category name", domain.ErrUnknownCategory)
		}
		seen[c.Name] = struct{}{}
		if len(c.Hashtags) == 0 {
			return domain.NewDomainError(domain.ErrCodeConfiguration, "category "+c.Name+" has no representative hashtags")
		}
	}
	return nil
}

// Contains reports whether name is a known category.
func (t CategoryTable) Contains(name string) bool {
	for _, c := range t {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Names returns category names in priority order.
func (t CategoryTable) Names() []string {
	names := make([]string, 0, len(t))
	for _, c := range t {
		names = append(names, c.Name)
	}
	return names
}

// hashtagIndex maps representative hashtag -> owning category name. Earlier
// categories claim contested hashtags.
func (t CategoryTable) hashtagIndex() map[string]string {
	idx := make(map[string]string)
	for _, c := range t {
		for _, tag := range c.Hashtags {
			if _, claimed := idx[tag]; !claimed {
				idx[tag] = c.Name
			}
		}
	}
	return idx
}
