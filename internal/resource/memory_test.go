package resource

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedNotes(t *testing.T, store *MemoryStore[note], notes ...note) []note {
	t.Helper()
	out := make([]note, 0, len(notes))
	for i := range notes {
		n := notes[i]
		n.IsActive = true
		require.NoError(t, store.Insert(t.Context(), &n))
		out = append(out, n)
	}
	return out
}

func TestMemoryInsertAssignsMeta(t *testing.T) {
	store := NewMemoryStore[note]()
	n := note{Title: "x"}
	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Insert(t.Context(), &n))
	require.False(t, n.ID.IsZero())
	require.True(t, n.CreatedAt.After(before))
	require.Equal(t, n.CreatedAt, n.UpdatedAt)
}

func TestMemoryUniqueFieldsAreSparse(t *testing.T) {
	store := NewMemoryStore[note]("slug")
	seedNotes(t, store, note{Title: "a"}, note{Title: "b"}, note{Title: "c", Slug: "c"})
	err := store.Insert(t.Context(), &note{Title: "d", Slug: "c"})
	require.ErrorIs(t, err, ErrDuplicateKey)

	n, err := store.Count(t.Context(), bson.M{})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestMemoryFilterOperators(t *testing.T) {
	store := NewMemoryStore[note]()
	seedNotes(t, store,
		note{Title: "alpha", Priority: 1, Tags: []string{"go", "api"}},
		note{Title: "beta", Priority: 4, Tags: []string{"web"}},
		note{Title: "gamma", Priority: 8},
	)

	cases := []struct {
		name   string
		filter bson.M
		want   int64
	}{
		{"equality", bson.M{"title": "beta"}, 1},
		{"array contains", bson.M{"tags": "api"}, 1},
		{"gt int64 vs stored int", bson.M{"priority": bson.M{"$gt": int64(1)}}, 2},
		{"range", bson.M{"priority": bson.M{"$gte": 1, "$lte": 4.0}}, 2},
		{"ne", bson.M{"title": bson.M{"$ne": "beta"}}, 2},
		{"in", bson.M{"tags": bson.M{"$in": []interface{}{"web", "none"}}}, 1},
		{"regex", bson.M{"title": primitive.Regex{Pattern: "A", Options: "i"}}, 3},
		{"or", bson.M{"$or": bson.A{bson.M{"title": "alpha"}, bson.M{"priority": 8}}}, 2},
		{"and", bson.M{"$and": []bson.M{{"priority": bson.M{"$gt": 0}}, {"tags": "web"}}}, 1},
		{"missing field equals nil", bson.M{"slug": nil}, 3},
		{"bson.D operator doc", bson.M{"priority": bson.D{{Key: "$lt", Value: 5}}}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := store.Count(t.Context(), tc.filter)
			require.NoError(t, err)
			require.Equal(t, tc.want, n)
		})
	}

	_, err := store.Count(t.Context(), bson.M{"title": bson.M{"$where": "1"}})
	require.Error(t, err)
}

func TestMemoryFindSortSkipLimitProjection(t *testing.T) {
	store := NewMemoryStore[note]()
	seedNotes(t, store,
		note{Title: "c", Priority: 2, Body: "x"},
		note{Title: "a", Priority: 2, Body: "y"},
		note{Title: "b", Priority: 9, Body: "z"},
	)

	got, err := store.Find(t.Context(), Query{
		Filter: bson.M{},
		Sort:   bson.D{{Key: "priority", Value: -1}, {Key: "title", Value: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "c"}, titles(got))

	got, err = store.Find(t.Context(), Query{
		Filter:     bson.M{},
		Sort:       bson.D{{Key: "title", Value: 1}},
		Skip:       1,
		Limit:      1,
		Projection: bson.M{"title": 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].Title)
	require.Empty(t, got[0].Body)
	require.False(t, got[0].ID.IsZero())

	_, err = store.Find(t.Context(), Query{Filter: bson.M{}, Projection: bson.M{"title": 1, "body": 0}})
	require.Error(t, err)
}

func TestMemoryUpdateOneReturnsUpdated(t *testing.T) {
	store := NewMemoryStore[note]("slug")
	seeded := seedNotes(t, store, note{Title: "one", Slug: "one"}, note{Title: "two", Slug: "two"})
	time.Sleep(2 * time.Millisecond)

	got, err := store.UpdateOne(t.Context(), bson.M{"_id": seeded[0].ID}, bson.M{"title": "uno"})
	require.NoError(t, err)
	require.Equal(t, "uno", got.Title)
	require.Equal(t, "one", got.Slug)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))

	_, err = store.UpdateOne(t.Context(), bson.M{"_id": seeded[0].ID}, bson.M{"slug": "two"})
	require.ErrorIs(t, err, ErrDuplicateKey)

	_, err = store.UpdateOne(t.Context(), bson.M{"_id": primitive.NewObjectID()}, bson.M{"title": "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateMany(t *testing.T) {
	store := NewMemoryStore[note]()
	seedNotes(t, store, note{Title: "a", Priority: 1}, note{Title: "b", Priority: 1}, note{Title: "c", Priority: 2})

	n, err := store.UpdateMany(t.Context(), bson.M{"priority": 1}, bson.M{"priority": 5})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	count, err := store.Count(t.Context(), bson.M{"priority": 5})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestMemoryTypedSliceIn(t *testing.T) {
	store := NewMemoryStore[note]()
	seeded := seedNotes(t, store, note{Title: "a"}, note{Title: "b"}, note{Title: "c"})
	ids := []primitive.ObjectID{seeded[0].ID, seeded[2].ID}

	n, err := store.UpdateMany(t.Context(), bson.M{"_id": bson.M{"$in": ids}, "isActive": true}, bson.M{"priority": 7})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	count, err := store.Count(t.Context(), bson.M{"priority": bson.M{"$in": []int{7}}})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = store.Count(t.Context(), bson.M{"_id": bson.M{"$in": []primitive.ObjectID{primitive.NewObjectID()}}})
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = store.Count(t.Context(), bson.M{"title": bson.M{"$in": "a"}})
	require.Error(t, err)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	store := NewMemoryStore[note]()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Insert(t.Context(), &note{Base: Base{IsActive: true}, Title: "c"})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Find(t.Context(), Query{Filter: bson.M{"isActive": true}, Sort: bson.D{{Key: "createdAt", Value: -1}}})
		}()
	}
	wg.Wait()
	n, err := store.Count(t.Context(), bson.M{"isActive": true})
	require.NoError(t, err)
	require.Equal(t, int64(20), n)
}
