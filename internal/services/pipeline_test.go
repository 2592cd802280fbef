package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladyslav-onipko/space-server/internal/models"
)

func TestPageSkip(t *testing.T) {
	assert.Equal(t, 0, NewPage(1, 6).Skip())
	assert.Equal(t, 6, NewPage(2, 6).Skip())
	assert.Equal(t, 12, NewPage(3, 6).Skip())

	// Page numbers below one are clamped to the first page.
	assert.Equal(t, 0, NewPage(0, 6).Skip())
	assert.Equal(t, 0, NewPage(-5, 6).Skip())
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		size  int
		want  int
	}{
		{"empty still renders one page", 0, 6, 1},
		{"exact fit", 12, 6, 2},
		{"partial last page", 13, 6, 3},
		{"single item", 1, 6, 1},
		{"page size one", 5, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.total, tt.size))
		})
	}
}

func TestHasNextPage(t *testing.T) {
	assert.True(t, HasNextPage(NewPage(1, 6), 13))
	assert.True(t, HasNextPage(NewPage(2, 6), 13))
	assert.False(t, HasNextPage(NewPage(3, 6), 13))
	assert.False(t, HasNextPage(NewPage(1, 6), 0))
	assert.False(t, HasNextPage(NewPage(1, 6), 6))
}

func TestFeedQueryPredicate(t *testing.T) {
	creator := primitive.NewObjectID()

	t.Run("default matches only shared", func(t *testing.T) {
		predicate := FeedQuery{Category: models.CategoryPlace}.Predicate()
		assert.Equal(t, bson.D{
			{Key: "category", Value: models.CategoryPlace},
			{Key: "shared", Value: true},
		}, predicate)
	})

	t.Run("creator filter narrows to one user", func(t *testing.T) {
		predicate := FeedQuery{Category: models.CategoryPlace, Creator: &creator}.Predicate()
		assert.Contains(t, predicate, bson.E{Key: "creator", Value: creator})
	})

	t.Run("search adds a text predicate", func(t *testing.T) {
		predicate := FeedQuery{Category: models.CategoryRocket, Search: "orbital"}.Predicate()
		assert.Contains(t, predicate, bson.E{
			Key: "$text", Value: bson.D{{Key: "$search", Value: "orbital"}},
		})
	})
}

func TestFeedPipelineStageOrder(t *testing.T) {
	pipeline := FeedPipeline(FeedQuery{Category: models.CategoryPlace}, NewPage(2, 6))

	require.Len(t, pipeline, 5)
	assert.Equal(t, "$match", pipeline[0][0].Key)
	assert.Equal(t, "$project", pipeline[1][0].Key)
	assert.Equal(t, "$sort", pipeline[2][0].Key)
	assert.Equal(t, "$skip", pipeline[3][0].Key)
	assert.Equal(t, "$limit", pipeline[4][0].Key)

	assert.Equal(t, 6, pipeline[3][0].Value)
	assert.Equal(t, 6, pipeline[4][0].Value)
}

func TestSummaryProjectFavorite(t *testing.T) {
	viewer := primitive.NewObjectID()

	t.Run("without viewer favorite is constant false", func(t *testing.T) {
		project := summaryProject(nil)[0].Value.(bson.D)
		for _, field := range project {
			if field.Key == "favorite" {
				assert.Equal(t, false, field.Value)
				return
			}
		}
		t.Fatal("favorite field missing from projection")
	})

	t.Run("with viewer favorite checks likes membership", func(t *testing.T) {
		project := summaryProject(&viewer)[0].Value.(bson.D)
		for _, field := range project {
			if field.Key == "favorite" {
				assert.Equal(t, bson.D{{Key: "$in", Value: bson.A{viewer, "$likes"}}}, field.Value)
				return
			}
		}
		t.Fatal("favorite field missing from projection")
	})
}

func TestProfilePredicate(t *testing.T) {
	owner := primitive.NewObjectID()

	all := ProfilePredicate(models.CategoryRocket, owner, ProfileAll, "")
	assert.Equal(t, bson.D{
		{Key: "category", Value: models.CategoryRocket},
		{Key: "creator", Value: owner},
	}, all)

	favorites := ProfilePredicate(models.CategoryRocket, owner, ProfileFavorites, "")
	assert.Contains(t, favorites, bson.E{Key: "likes", Value: owner})

	shared := ProfilePredicate(models.CategoryRocket, owner, ProfileShared, "")
	assert.Contains(t, shared, bson.E{Key: "shared", Value: true})

	searched := ProfilePredicate(models.CategoryRocket, owner, ProfileAll, "falcon")
	assert.Contains(t, searched, bson.E{
		Key: "$text", Value: bson.D{{Key: "$search", Value: "falcon"}},
	})
}

func TestTopListingsPipeline(t *testing.T) {
	creator := primitive.NewObjectID()
	pipeline := TopListingsPipeline(models.CategoryPlace, &creator, 3)

	match := pipeline[0][0].Value.(bson.D)
	assert.Contains(t, match, bson.E{Key: "shared", Value: true})
	assert.Contains(t, match, bson.E{Key: "creator", Value: creator})

	// Zero-like listings are excluded before ranking.
	secondMatch := pipeline[2][0]
	require.Equal(t, "$match", secondMatch.Key)
	assert.Equal(t, bson.D{{Key: "likes", Value: bson.D{{Key: "$gt", Value: 0}}}}, secondMatch.Value)

	last := pipeline[len(pipeline)-1][0]
	require.Equal(t, "$limit", last.Key)
	assert.Equal(t, 3, last.Value)

	global := TopListingsPipeline(models.CategoryPlace, nil, 3)
	globalMatch := global[0][0].Value.(bson.D)
	assert.NotContains(t, globalMatch, bson.E{Key: "creator", Value: creator})
}

func TestTopUsersPipelineLimit(t *testing.T) {
	unbounded := TopUsersPipeline("", 0)
	for _, stage := range unbounded {
		assert.NotEqual(t, "$limit", stage[0].Key)
	}

	bounded := TopUsersPipeline(models.CategoryPlace, 5)
	found := false
	for _, stage := range bounded {
		if stage[0].Key == "$limit" {
			assert.Equal(t, 5, stage[0].Value)
			found = true
		}
	}
	assert.True(t, found, "bounded pipeline must carry a $limit stage")

	// Category match only appears when a category is given.
	assert.Equal(t, "$group", unbounded[0][0].Key)
	assert.Equal(t, "$match", bounded[0][0].Key)
}

func TestUserRatingPipelineGuardsDivision(t *testing.T) {
	pipeline := UserRatingPipeline(models.CategoryPlace, primitive.NewObjectID())

	project := pipeline[2][0].Value.(bson.D)
	for _, field := range project {
		if field.Key == "rating" {
			cond := field.Value.(bson.D)
			require.Equal(t, "$cond", cond[0].Key)
			return
		}
	}
	t.Fatal("rating field missing from projection")
}

func TestDetailPipelineMatchesCategory(t *testing.T) {
	id := primitive.NewObjectID()
	pipeline := DetailPipeline(models.CategoryPlace, id)

	match := pipeline[0][0].Value.(bson.D)
	assert.Contains(t, match, bson.E{Key: "_id", Value: id})
	assert.Contains(t, match, bson.E{Key: "category", Value: models.CategoryPlace})

	// The same id under the other category must not match.
	rocket := DetailPipeline(models.CategoryRocket, id)[0][0].Value.(bson.D)
	assert.Contains(t, rocket, bson.E{Key: "category", Value: models.CategoryRocket})
}
