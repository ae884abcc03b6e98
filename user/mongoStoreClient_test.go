package user

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const testDatabase = "marquee_user_test"

// newTestMongoStore connects to MARQUEE_TEST_MONGO_URI (or a local mongod)
// and starts from empty collections. The test is skipped when no server
// answers.
func newTestMongoStore(t *testing.T) *MongoStoreClient {
	t.Helper()

	uri := os.Getenv("MARQUEE_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mc, err := NewMongoStoreClient(ctx, &MongoConfig{
		URI:          uri,
		Database:     testDatabase,
		Timeout:      2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	if err := mc.Ping(ctx); err != nil {
		_ = mc.Close(ctx)
		t.Skipf("mongo not available: %v", err)
	}
	t.Cleanup(func() { _ = mc.Close(context.Background()) })

	/*
	 * INIT THE TEST - we use a clean copy of the collections before we start
	 */
	require.NoError(t, mc.users.Drop(ctx))
	require.NoError(t, mc.sessions.Drop(ctx))
	require.NoError(t, mc.EnsureIndexes(ctx))
	return mc
}

func TestMongoStoreClient(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) Storage {
		return newTestMongoStore(t)
	})
}

func TestMongoStoreClient_DocumentLayout(t *testing.T) {
	mc := newTestMongoStore(t)
	ctx := context.Background()

	require.NoError(t, mc.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com", HashedPassword: "hash"}))
	require.NoError(t, mc.CreateUserSession(ctx, "ned@stark.com", "token-1"))

	var rawUser bson.M
	require.NoError(t, mc.users.FindOne(ctx, bson.M{"email": "ned@stark.com"}).Decode(&rawUser))
	assert.Equal(t, "Ned", rawUser["name"])
	assert.Equal(t, "hash", rawUser["hashedpw"])
	assert.Equal(t, false, rawUser["isAdmin"])
	assert.NotContains(t, rawUser, "preferences")

	var rawSession bson.M
	require.NoError(t, mc.sessions.FindOne(ctx, bson.M{"user_id": "ned@stark.com"}).Decode(&rawSession))
	assert.Equal(t, "token-1", rawSession["jwt"])
}

// Sessions written around CreateUserSession, as a concurrent login would,
// resolve to the oldest one.
func TestMongoStoreClient_GetUserSessionWithSeveralSessions(t *testing.T) {
	mc := newTestMongoStore(t)
	ctx := context.Background()

	_, err := mc.sessions.InsertOne(ctx, &Session{UserId: "ned@stark.com", Jwt: "token-1"})
	require.NoError(t, err)
	_, err = mc.sessions.InsertOne(ctx, &Session{UserId: "ned@stark.com", Jwt: "token-2"})
	require.NoError(t, err)
	_, err = mc.sessions.InsertOne(ctx, &Session{UserId: "ned@stark.com", Jwt: "token-3"})
	require.NoError(t, err)

	session, err := mc.GetUserSession(ctx, "ned@stark.com")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "token-1", session.Jwt)

	assert.True(t, mc.DeleteUserSessions(ctx, "ned@stark.com"))
	count, err := mc.sessions.CountDocuments(ctx, bson.M{"user_id": "ned@stark.com"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMongoStoreClient_NumericPreferences(t *testing.T) {
	mc := newTestMongoStore(t)
	ctx := context.Background()
	require.NoError(t, mc.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))

	_, err := mc.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{"a": 1})
	require.NoError(t, err)
	_, err = mc.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{"b": 2})
	require.NoError(t, err)

	found, err := mc.GetUser(ctx, "ned@stark.com")
	require.NoError(t, err)
	require.Len(t, found.Preferences, 1)
	assert.EqualValues(t, 2, found.Preferences["b"])
}

func TestMongoStoreClient_ClosedClient(t *testing.T) {
	mc := newTestMongoStore(t)
	ctx := context.Background()
	require.NoError(t, mc.Close(ctx))

	err := mc.AddUser(ctx, &User{Email: "ned@stark.com"})
	assert.True(t, IsPersistenceError(err))

	_, err = mc.GetUser(ctx, "ned@stark.com")
	assert.True(t, IsPersistenceError(err))

	// deletes fail soft
	assert.False(t, mc.DeleteUserSessions(ctx, "ned@stark.com"))
	assert.False(t, mc.DeleteUser(ctx, "ned@stark.com"))
}

func TestSortedDocument_StableEncoding(t *testing.T) {
	prefs := Preferences{
		"genre":     "western",
		"subtitles": "fr",
		"layout":    "grid",
		"autoplay":  "off",
		"quality":   "hd",
		"player":    map[string]interface{}{"volume": "80", "speed": "1x", "captions": "on"},
		"rows":      []interface{}{bson.M{"b": "2", "a": "1"}},
	}

	first, err := bson.Marshal(bson.M{"$set": bson.M{preferencesField: sortedDocument(prefs)}})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := bson.Marshal(bson.M{"$set": bson.M{preferencesField: sortedDocument(prefs)}})
		require.NoError(t, err)
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding %d differs from the first one", i)
		}
	}

	doc := sortedDocument(prefs)
	keys := make([]string, len(doc))
	for i, e := range doc {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"autoplay", "genre", "layout", "player", "quality", "rows", "subtitles"}, keys)
	assert.Equal(t, bson.D{{Key: "captions", Value: "on"}, {Key: "speed", Value: "1x"}, {Key: "volume", Value: "80"}}, doc[3].Value)
	assert.Equal(t, bson.A{bson.D{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}}, doc[5].Value)
}
