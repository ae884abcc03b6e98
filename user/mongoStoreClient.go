package user

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	USERS_COLLECTION    = "users"
	SESSIONS_COLLECTION = "sessions"

	emailField       = "email"
	userIdField      = "user_id"
	preferencesField = "preferences"
)

type MongoConfig struct {
	URI          string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database     string        `envconfig:"MONGO_DATABASE" default:"mflix"`
	Timeout      time.Duration `envconfig:"MONGO_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"MONGO_WRITE_TIMEOUT" default:"2s"`
}

// MongoStoreClient is built once at startup and shared by every caller; the
// driver client underneath is a connection pool.
type MongoStoreClient struct {
	client   *mongo.Client
	database string
	users    *mongo.Collection
	sessions *mongo.Collection
}

var _ Storage = &MongoStoreClient{}

func NewMongoStoreClient(ctx context.Context, config *MongoConfig) (*MongoStoreClient, error) {
	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.Timeout).
		SetServerSelectionTimeout(config.Timeout)

	mongoClient, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to mongo")
	}

	db := mongoClient.Database(config.Database)
	usersWriteConcern := writeconcern.New(writeconcern.W(1), writeconcern.WTimeout(config.WriteTimeout))

	return &MongoStoreClient{
		client:   mongoClient,
		database: config.Database,
		users:    db.Collection(USERS_COLLECTION, options.Collection().SetWriteConcern(usersWriteConcern)),
		sessions: db.Collection(SESSIONS_COLLECTION),
	}, nil
}

// EnsureIndexes makes email the unique key of the users collection and
// indexes sessions by user id.
func (d *MongoStoreClient) EnsureIndexes(ctx context.Context) error {
	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)

	usersIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: emailField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_email"),
	}
	if _, err := d.users.Indexes().CreateOne(ctx, usersIndex, opts); err != nil {
		storeLogger.WithError(err).Error("EnsureIndexes users")
		return errors.Wrap(err, "unable to create users index")
	}

	sessionsIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: userIdField, Value: 1}},
		Options: options.Index().SetName("session_user_id"),
	}
	if _, err := d.sessions.Indexes().CreateOne(ctx, sessionsIndex, opts); err != nil {
		storeLogger.WithError(err).Error("EnsureIndexes sessions")
		return errors.Wrap(err, "unable to create sessions index")
	}
	return nil
}

func (d *MongoStoreClient) Close(ctx context.Context) error {
	storeLogger.Info("Close the mongo client")
	return d.client.Disconnect(ctx)
}

func (d *MongoStoreClient) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

func (d *MongoStoreClient) AddUser(ctx context.Context, user *User) (err error) {
	defer observe("add_user", time.Now(), &err)

	if user == nil || user.Email == "" {
		return newPersistenceError("add user", ErrMissingUserDetails)
	}
	if _, err = d.users.InsertOne(ctx, user); err != nil {
		storeLogger.WithFields(log.Fields{"email": user.Email}).WithError(err).Warn("AddUser rejected")
		return newPersistenceError("add user", err)
	}
	return nil
}

// CreateUserSession replaces whatever sessions the user had with a single
// new one. The delete and the insert are two separate round trips.
func (d *MongoStoreClient) CreateUserSession(ctx context.Context, userId, jwt string) (err error) {
	defer observe("create_session", time.Now(), &err)

	if userId == "" || jwt == "" {
		return newPersistenceError("create session", ErrMissingSessionDetails)
	}
	if _, err = d.deleteSessions(ctx, userId); err != nil {
		return newPersistenceError("create session", err)
	}
	if _, err = d.sessions.InsertOne(ctx, &Session{UserId: userId, Jwt: jwt}); err != nil {
		return newPersistenceError("create session", err)
	}
	return nil
}

func (d *MongoStoreClient) GetUser(ctx context.Context, email string) (result *User, err error) {
	defer observe("get_user", time.Now(), &err)

	result = &User{}
	if err = d.users.FindOne(ctx, bson.M{emailField: email}).Decode(result); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, newPersistenceError("get user", err)
	}
	return result, nil
}

// GetUserSession returns the oldest stored session when more than one exists
// for userId.
func (d *MongoStoreClient) GetUserSession(ctx context.Context, userId string) (result *Session, err error) {
	defer observe("get_session", time.Now(), &err)

	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	result = &Session{}
	if err = d.sessions.FindOne(ctx, bson.M{userIdField: userId}, opts).Decode(result); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, newPersistenceError("get session", err)
	}
	return result, nil
}

func (d *MongoStoreClient) deleteSessions(ctx context.Context, userId string) (int64, error) {
	result, err := d.sessions.DeleteMany(ctx, bson.M{userIdField: userId})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (d *MongoStoreClient) DeleteUserSessions(ctx context.Context, userId string) bool {
	var err error
	defer observe("delete_sessions", time.Now(), &err)

	deleted, err := d.deleteSessions(ctx, userId)
	if err != nil {
		storeLogger.WithFields(log.Fields{"user_id": userId}).WithError(err).Error("There was an error while deleting the user's sessions")
		return false
	}
	return deleted > 0
}

// DeleteUser removes the user and, first, the sessions keyed by the same
// email.
func (d *MongoStoreClient) DeleteUser(ctx context.Context, email string) bool {
	var err error
	defer observe("delete_user", time.Now(), &err)

	d.DeleteUserSessions(ctx, email)

	result, err := d.users.DeleteOne(ctx, bson.M{emailField: email})
	if err != nil {
		storeLogger.WithFields(log.Fields{"email": email}).WithError(err).Error("There was an error while deleting the user")
		return false
	}
	return result.DeletedCount > 0
}

// UpdateUserPreferences replaces the stored preferences with prefs, creating
// the document when no user has that email. It reports whether anything was
// written.
func (d *MongoStoreClient) UpdateUserPreferences(ctx context.Context, email string, prefs Preferences) (updated bool, err error) {
	defer observe("update_preferences", time.Now(), &err)

	if prefs == nil {
		return false, newPersistenceError("update preferences", ErrPreferencesRequired)
	}

	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{preferencesField: sortedDocument(prefs)}}

	result, err := d.users.UpdateOne(ctx, bson.M{emailField: email}, update, opts)
	if err != nil {
		return false, newPersistenceError("update preferences", err)
	}
	return result.ModifiedCount+result.UpsertedCount > 0, nil
}

// sortedDocument orders the keys of prefs, and of any map nested in it, so the
// same preferences always encode to the same document. The server compares
// embedded documents field by field, in order.
func sortedDocument(prefs map[string]interface{}) bson.D {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: sortedValue(prefs[k])})
	}
	return doc
}

func sortedValue(v interface{}) interface{} {
	switch value := v.(type) {
	case Preferences:
		return sortedDocument(value)
	case bson.M:
		return sortedDocument(value)
	case map[string]interface{}:
		return sortedDocument(value)
	case []interface{}:
		items := make(bson.A, len(value))
		for i, item := range value {
			items[i] = sortedValue(item)
		}
		return items
	default:
		return v
	}
}
