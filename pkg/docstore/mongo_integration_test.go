package docstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/corewar/corewar-api/pkg/docstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// liveRepo connects to MONGO_TEST_URI and returns a repo on a throwaway collection.
func liveRepo(t *testing.T) docstore.Repo[corewar.Hill] {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := docstore.Connect(ctx, uri, "corewar_test")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(context.Background()) })

	repo := docstore.NewRepo[corewar.Hill](db, "hills_"+uuid.NewString()[:8])
	t.Cleanup(func() { repo.RemoveAll(context.Background(), nil) })
	return repo
}

func seedHills(t *testing.T, repo docstore.Repo[corewar.Hill], n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Add(context.Background(), corewar.Hill{
			ID:    uuid.NewString(),
			Rules: corewar.Rules{Rounds: i + 1, Size: 10},
		})
		require.NoError(t, err)
	}
}

func TestLive_CountMatchesGetAll(t *testing.T) {
	repo := liveRepo(t)
	ctx := context.Background()
	seedHills(t, repo, 5)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	all, err := repo.GetAll(ctx, nil, docstore.Page{})
	require.NoError(t, err)

	assert.Equal(t, int64(len(all)), n)
	assert.Equal(t, int64(5), n)
}

func TestLive_RemoveAllEmptiesCollection(t *testing.T) {
	repo := liveRepo(t)
	ctx := context.Background()
	seedHills(t, repo, 4)

	removed, err := repo.RemoveAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, removed, 4)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLive_AddOrUpdateIsIdempotent(t *testing.T) {
	repo := liveRepo(t)
	ctx := context.Background()
	hill := corewar.Hill{
		ID:       uuid.NewString(),
		Rules:    corewar.Rules{Rounds: 100, Size: 20},
		Warriors: []corewar.Warrior{{Redcode: "MOV 0, 1"}},
	}

	for i := 0; i < 3; i++ {
		id, err := repo.AddOrUpdate(ctx, hill)
		require.NoError(t, err)
		assert.Equal(t, hill.ID, id)
	}

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, hill.ID)
	require.NoError(t, err)
	assert.Equal(t, hill, got)
}

func TestLive_AddOrUpdateOneIsIdempotent(t *testing.T) {
	repo := liveRepo(t)
	ctx := context.Background()
	criteria := docstore.Filter{"rules.size": 42}
	hill := corewar.Hill{Rules: corewar.Rules{Rounds: 7, Size: 42}, Warriors: []corewar.Warrior{}}

	first, err := repo.AddOrUpdateOne(ctx, criteria, hill)
	require.NoError(t, err)
	second, err := repo.AddOrUpdateOne(ctx, criteria, hill)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	n, err := repo.Count(ctx, criteria)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLive_PagedGetAll(t *testing.T) {
	repo := liveRepo(t)
	ctx := context.Background()
	seedHills(t, repo, 6)

	page, err := repo.GetAll(ctx, nil, docstore.Page{
		Sort: bson.D{{Key: "rules.rounds", Value: -1}},
		Skip: 1,
		Take: 2,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 5, page[0].Rules.Rounds)
	assert.Equal(t, 4, page[1].Rules.Rounds)
}
