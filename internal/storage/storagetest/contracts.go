// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-service/internal/trips"
	"journal-service/internal/users"
)

// RunUserRepo checks a users.Repository. The repository must start empty.
func RunUserRepo(t *testing.T, repo users.Repository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, users.ErrNotFound)

	u := &users.User{Email: "alice@example.com", PasswordHash: "hash-1", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash-1", got.PasswordHash)

	dup := &users.User{Email: "alice@example.com", PasswordHash: "hash-2", CreatedAt: time.Now().UTC()}
	require.ErrorIs(t, repo.Create(ctx, dup), users.ErrEmailTaken)

	got, err = repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.PasswordHash)
}

func record(t *testing.T, raw string) *trips.Record {
	t.Helper()
	rec := trips.NewRecord()
	require.NoError(t, json.Unmarshal([]byte(raw), rec))
	return rec
}

func encode(t *testing.T, recs []*trips.Record) string {
	t.Helper()
	out, err := json.Marshal(recs)
	require.NoError(t, err)
	return string(out)
}

// RunTripRepo checks a trips.Repository. The repository must start empty.
func RunTripRepo(t *testing.T, repo trips.Repository) {
	t.Helper()
	ctx := context.Background()

	got, err := repo.ListByOwner(ctx, "u-alice")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, repo.Insert(ctx, record(t, `{"title":"first","user_id":"u-alice","email":"alice@example.com"}`)))
	require.NoError(t, repo.InsertMany(ctx, []*trips.Record{
		record(t, `{"title":"second","tags":["a","b"],"meta":{"z":1,"a":2.5},"user_id":"u-alice","email":"alice@example.com"}`),
		record(t, `{"title":"bob's","user_id":"u-bob","email":"bob@example.com"}`),
		record(t, `{"title":"third","note":null,"user_id":"u-alice","email":"alice@example.com"}`),
	}))

	got, err = repo.ListByOwner(ctx, "u-alice")
	require.NoError(t, err)
	assert.Equal(t,
		`[{"title":"first","user_id":"u-alice","email":"alice@example.com"},`+
			`{"title":"second","tags":["a","b"],"meta":{"z":1,"a":2.5},"user_id":"u-alice","email":"alice@example.com"},`+
			`{"title":"third","note":null,"user_id":"u-alice","email":"alice@example.com"}]`,
		encode(t, got))

	got, err = repo.ListByOwner(ctx, "u-bob")
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, hasID := got[0].Get("_id")
	assert.False(t, hasID)

	got, err = repo.ListByOwner(ctx, "u-carol")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Submitted _id values are stored but never returned, and do not
	// disturb insertion order.
	require.NoError(t, repo.InsertMany(ctx, []*trips.Record{
		record(t, `{"title":"d1","user_id":"u-dave"}`),
		record(t, `{"_id":"zzz-custom","title":"d2","user_id":"u-dave"}`),
		record(t, `{"_id":7,"title":"d3","user_id":"u-dave"}`),
	}))
	require.NoError(t, repo.Insert(ctx, record(t, `{"title":"d4","user_id":"u-dave"}`)))

	got, err = repo.ListByOwner(ctx, "u-dave")
	require.NoError(t, err)
	assert.Equal(t,
		`[{"title":"d1","user_id":"u-dave"},{"title":"d2","user_id":"u-dave"},`+
			`{"title":"d3","user_id":"u-dave"},{"title":"d4","user_id":"u-dave"}]`,
		encode(t, got))
}
