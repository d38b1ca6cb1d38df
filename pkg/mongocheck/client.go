package mongocheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vertti/validate-infra/pkg/check"
)

// Store is the part of a MongoDB connection the probe uses. Errors are
// classified with check.Kind.
type Store interface {
	Version(ctx context.Context) (string, error)
	Insert(ctx context.Context) (interface{}, error)
	Find(ctx context.Context, id interface{}) (bool, error)
	Update(ctx context.Context, id interface{}) error
	Delete(ctx context.Context, id interface{}) error
	Drop(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connector opens a connection and proves it with a ping.
type Connector func(ctx context.Context, cfg Config, database string) (Store, error)

// MongoDB server error codes.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a MongoDB client with the official driver and pings the
// primary.
func Connect(ctx context.Context, cfg Config, database string) (Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout).SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, classify("connect", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, classify("ping", err)
	}
	return &mongoStore{
		client: client,
		coll:   client.Database(database).Collection(TestCollection),
	}, nil
}

func (m *mongoStore) Version(ctx context.Context) (string, error) {
	var info bson.M
	cmd := bson.D{{Key: "buildInfo", Value: 1}}
	if err := m.client.Database("admin").RunCommand(ctx, cmd).Decode(&info); err != nil {
		return "", classify("buildInfo", err)
	}
	return fmt.Sprint(info["version"]), nil
}

func (m *mongoStore) Insert(ctx context.Context) (interface{}, error) {
	res, err := m.coll.InsertOne(ctx, bson.M{"test": "value"})
	if err != nil {
		return nil, classify("insert", err)
	}
	return res.InsertedID, nil
}

func (m *mongoStore) Find(ctx context.Context, id interface{}) (bool, error) {
	var doc bson.M
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, classify("find", err)
	}
	return true, nil
}

func (m *mongoStore) Update(ctx context.Context, id interface{}) error {
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"test": "updated"}})
	return classify("update", err)
}

func (m *mongoStore) Delete(ctx context.Context, id interface{}) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	return classify("delete", err)
}

func (m *mongoStore) Drop(ctx context.Context) error {
	return classify("drop", m.coll.Drop(ctx))
}

func (m *mongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Store = (*mongoStore)(nil)

// classify labels driver errors. String checks are limited to messages the
// driver produces without a server error code.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		switch {
		case se.HasErrorCode(codeAuthenticationFailed):
			return &check.Error{Kind: check.KindAuthFailed, Op: op, Err: err}
		case se.HasErrorCode(codeUnauthorized):
			return &check.Error{Kind: check.KindPermissionDenied, Op: op, Err: err}
		}
		return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication failed"), strings.Contains(msg, "auth error"):
		return &check.Error{Kind: check.KindAuthFailed, Op: op, Err: err}
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), strings.Contains(msg, "server selection"):
		return &check.Error{Kind: check.KindUnreachable, Op: op, Hint: "Check network/firewall or trusted sources", Err: err}
	}
	return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
}

// idString renders an inserted id for display.
func idString(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}
