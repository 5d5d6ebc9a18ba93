package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Armoredbrain/RoBoTo/bot"
)

const (
	defaultCollection = "sessions"
	defaultOpTimeout  = 5 * time.Second
)

// Mongo is the production Store, one document per session.
type Mongo struct {
	client   *mongo.Client
	sessions *mongo.Collection
	timeout  time.Duration
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &Mongo{
		client:   client,
		sessions: client.Database(database).Collection(defaultCollection),
		timeout:  defaultOpTimeout,
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Create(ctx context.Context, session *bot.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if _, err := m.sessions.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("creating session %s: %w", session.ID, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*bot.Session, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var session bot.Session
	err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return &session, nil
}

func (m *Mongo) Save(ctx context.Context, session *bot.Session) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	_, err := m.sessions.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}
	return nil
}

// Claim is a single find-and-update: the filter requires AVAILABLE, so two
// concurrent claims on the same session cannot both match.
func (m *Mongo) Claim(ctx context.Context, id string) (*bot.Session, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var session bot.Session
	err := m.sessions.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bot.StatusAvailable},
		bson.M{"$set": bson.M{"status": bot.StatusBusy}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the id is unknown or someone else holds the session.
		if _, getErr := m.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("claiming session %s: %w", id, err)
	}
	return &session, nil
}

func (m *Mongo) SetStatus(ctx context.Context, id string, status bot.SessionStatus) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	result, err := m.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("updating status of session %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}
