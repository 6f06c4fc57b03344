package personalize

import (
	"testing"

	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSearchEngine_GenerateHashtags(t *testing.T) {
	engine := NewSearchEngine(DefaultCategoryTable())

	p := domain.NewPreferenceProfile()
	p.HashtagFreq["fyp"] = 50
	p.HashtagFreq["cooking"] = 10
	p.HashtagFreq["mixing"] = 3
	p.HashtagFreq["cookingtips"] = 2
	p.SampleCount = 20

	t.Run("frequency descending", func(t *testing.T) {
		got := engine.GenerateHashtags(p, 3)
		assert.Equal(t, []string{"fyp", "cooking", "mixing"}, got)
	})

	t.Run("limit zero returns all", func(t *testing.T) {
		got := engine.GenerateHashtags(p, 0)
		assert.Len(t, got, 4)
		assert.Equal(t, "fyp", got[0])
	})

	t.Run("limit larger than table", func(t *testing.T) {
		got := engine.GenerateHashtags(p, 100)
		assert.Len(t, got, 4)
	})

	t.Run("empty profile", func(t *testing.T) {
		assert.Nil(t, engine.GenerateHashtags(domain.NewPreferenceProfile(), 5))
		assert.Nil(t, engine.GenerateHashtags(nil, 5))
	})
}

func TestSearchEngine_GenerateHashtags_CategoryAffinityTieBreak(t *testing.T) {
	engine := NewSearchEngine(DefaultCategoryTable())

	p := domain.NewPreferenceProfile()
	// Equal frequency; "cooking" belongs to the food category which the
	// profile strongly prefers, so it outranks the gaming hashtag.
	p.HashtagFreq["gaming"] = 5
	p.HashtagFreq["cooking"] = 5
	p.CategoryScores["food"] = 9
	p.CategoryScores["gaming"] = 1
	p.SampleCount = 10

	got := engine.GenerateHashtags(p, 2)
	assert.Equal(t, []string{"cooking", "gaming"}, got)
}

func TestSearchEngine_GenerateHashtags_Idempotent(t *testing.T) {
	engine := NewSearchEngine(DefaultCategoryTable())
	p := domain.NewPreferenceProfile()
	p.HashtagFreq["fyp"] = 2
	p.HashtagFreq["cooking"] = 2
	p.SampleCount = 4

	first := engine.GenerateHashtags(p, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.GenerateHashtags(p, 10))
	}
}

func TestSearchEngine_PreferredCreators(t *testing.T) {
	engine := NewSearchEngine(DefaultCategoryTable())

	p := domain.NewPreferenceProfile()
	p.CreatorFreq["chef_anna"] = 9
	p.CreatorFreq["gym_rat"] = 4
	p.CreatorFreq["artsy"] = 4
	p.CreatorFreq["rando"] = 1
	p.SampleCount = 18

	t.Run("ranked with deterministic ties", func(t *testing.T) {
		got := engine.PreferredCreators(p, 3)
		assert.Equal(t, []string{"chef_anna", "artsy", "gym_rat"}, got)
	})

	t.Run("empty profile", func(t *testing.T) {
		assert.Nil(t, engine.PreferredCreators(domain.NewPreferenceProfile(), 5))
	})
}
