package typed_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marldb/marl/pkg/adapters/memory"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/typed"
)

type accountStatus string

const (
	accountActive   accountStatus = "active"
	accountDisabled accountStatus = "disabled"
)

type account struct {
	ID     uuid.UUID     `bson:"_id"`
	Name   string        `bson:"name"`
	Status accountStatus `bson:"status"`
	Logins int           `bson:"logins"`
	Seen   time.Time     `bson:"seen"`
}

func newAccount(name string, status accountStatus) account {
	return account{
		ID:     uuid.New(),
		Name:   name,
		Status: status,
		Seen:   time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	col := typed.NewCollection[account](memory.New())

	alice := newAccount("Alice", accountActive)
	res, err := col.InsertOne(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, res.InsertedID)

	got, err := col.FindOne(ctx, bson.M{"_id": alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, accountActive, got.Status)
	assert.True(t, got.Seen.Equal(alice.Seen))
}

func TestFindOneNotFound(t *testing.T) {
	ctx := context.Background()
	col := typed.NewCollection[account](memory.New())

	_, err := col.FindOne(ctx, bson.M{"name": "nobody"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFilterWithEnumAndOperators(t *testing.T) {
	ctx := context.Background()
	col := typed.NewCollection[account](memory.New())

	accounts := []account{
		newAccount("Alice", accountActive),
		newAccount("Bob", accountDisabled),
		newAccount("Carol", accountActive),
	}
	res, err := col.InsertMany(ctx, accounts)
	require.NoError(t, err)
	require.Len(t, res.InsertedIDs, 3)

	// Enum filter values flatten to their underlying scalar.
	active, err := col.FindAll(ctx, bson.M{"status": accountActive})
	require.NoError(t, err)
	require.Len(t, active, 2)

	some, err := col.FindAll(ctx, bson.M{
		"name": bson.M{"$in": []any{"Alice", "Bob"}},
	})
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestUpdateMany(t *testing.T) {
	ctx := context.Background()
	col := typed.NewCollection[account](memory.New())

	alice := newAccount("Alice", accountActive)
	bob := newAccount("Bob", accountActive)
	carol := newAccount("Carol", accountDisabled)
	_, err := col.InsertMany(ctx, []account{alice, bob, carol})
	require.NoError(t, err)

	res, err := col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": []any{alice.ID, bob.ID}}},
		bson.M{"$set": bson.M{"status": accountDisabled}},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.MatchedCount)
	assert.EqualValues(t, 2, res.ModifiedCount)

	updated, err := col.FindAll(ctx, bson.M{"_id": bson.M{"$in": []any{alice.ID, bob.ID}}})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, a := range updated {
		assert.Equal(t, accountDisabled, a.Status)
	}
}

func TestUpdateOneModifiedCount(t *testing.T) {
	ctx := context.Background()
	col := typed.NewCollection[account](memory.New())

	alice := newAccount("Alice", accountActive)
	_, err := col.InsertOne(ctx, alice)
	require.NoError(t, err)

	// Setting the value it already has matches but does not modify.
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": alice.ID},
		bson.M{"$set": bson.M{"status": accountActive}},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.MatchedCount)
	assert.EqualValues(t, 0, res.ModifiedCount)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	driver := memory.New()
	col := typed.NewCollection[account](driver)

	alice := newAccount("Alice", accountActive)
	bob := newAccount("Bob", accountDisabled)
	_, err := col.InsertMany(ctx, []account{alice, bob})
	require.NoError(t, err)

	res, err := col.DeleteOne(ctx, bson.M{"_id": alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.DeletedCount)
	assert.Equal(t, 1, driver.Len())

	many, err := col.DeleteMany(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, many.DeletedCount)
	assert.Equal(t, 0, driver.Len())
}

func TestFindIsLazy(t *testing.T) {
	ctx := context.Background()
	col := typed.NewCollection[account](memory.New())

	_, err := col.InsertMany(ctx, []account{
		newAccount("Alice", accountActive),
		newAccount("Bob", accountActive),
		newAccount("Carol", accountActive),
	})
	require.NoError(t, err)

	var seen int
	for doc, err := range col.Find(ctx, nil) {
		require.NoError(t, err)
		require.NotNil(t, doc)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestNonStructTypeFailsLazily(t *testing.T) {
	ctx := context.Background()
	driver := memory.New()

	// Constructing with a non-struct type succeeds.
	col := typed.NewCollection[bson.M](driver)

	_, err := driver.InsertOne(ctx, bson.M{"name": "raw"})
	require.NoError(t, err)

	// The first decode needs a model and fails descriptively.
	_, err = col.FindOne(ctx, bson.M{"name": "raw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot determine document model")

	// Write paths never need the model.
	_, err = col.InsertOne(ctx, bson.M{"name": "another"})
	assert.NoError(t, err)
}

func TestModel(t *testing.T) {
	col := typed.NewCollection[account](memory.New())
	m, err := col.Model()
	require.NoError(t, err)
	require.NotNil(t, m.Identity())
	assert.Equal(t, "ID", m.Identity().Name)
}
