// Package mongocheck validates a MongoDB deployment with an insert, find,
// update, delete and drop cycle on a scratch collection.
package mongocheck

import (
	"context"
	"fmt"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
)

// TestCollection is the scratch collection created and dropped by the probe.
const TestCollection = "_validate_infra_test"

// Service validates one MongoDB deployment.
type Service struct {
	Config Config
	Open   Connector // nil means no client is available
}

// New returns a Service using the official driver.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: Connect}
}

// Validator wraps New in the shared validator state machine.
func Validator(cfg Config, probes validator.Probes) validator.Validator {
	return validator.New(New(cfg), probes)
}

func (s *Service) descriptor() connurl.Descriptor {
	return connurl.Parse(firstHost(s.Config.URI))
}

func (s *Service) database() string {
	if db := s.descriptor().Database; db != "" {
		return db
	}
	return "admin"
}

func (s *Service) Profile() validator.Profile {
	return validator.Profile{
		Name:          "MongoDB",
		Kind:          validator.KindDocument,
		ConnectStep:   "Connection",
		ConnectDetail: "Connected successfully",
		InfoStep:      "Server",
		InstallHint:   "MongoDB client (mongo-driver) not available in this build",
	}
}

func (s *Service) Validate() error {
	if s.Config.URI == "" {
		return check.Errorf(check.KindNotConfigured, "No MongoDB URI found (MONGODB_URI, MONGODB_URL, MONGO_URL)")
	}
	if vars := connurl.Placeholders(s.Config.URI); len(vars) > 0 {
		return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
	}
	return nil
}

func (s *Service) Describe() []string {
	d := s.descriptor()
	return []string{
		"Found MongoDB URI in " + s.Config.Source,
		"Host: " + d.Host,
		"Database: " + s.database(),
		"User: " + d.Username,
		"Password: " + connurl.Mask(d.Password, 4),
	}
}

func (s *Service) Endpoint() validator.Endpoint {
	d := s.descriptor()
	ep := validator.Endpoint{Host: d.Host, Port: d.Port}
	if s.Config.IsSRV() {
		ep.SRV = "mongodb"
	}
	return ep
}

func (s *Service) Driver() error {
	if s.Open == nil {
		return check.Errorf(check.KindDriverMissing, "no MongoDB client")
	}
	return nil
}

func (s *Service) Connect(ctx context.Context) (validator.Session, error) {
	store, err := s.Open(ctx, s.Config, s.database())
	if err != nil {
		return nil, err
	}
	return &session{store: store}, nil
}

type session struct {
	store Store
}

func (s *session) Info(ctx context.Context) (string, error) {
	v, err := s.store.Version(ctx)
	if err != nil {
		return "", err
	}
	return "Version: " + v, nil
}

func (s *session) Close() error {
	return s.store.Close(context.Background())
}

// Probe runs the document cycle. Any failure ends it with a single
// Operations check; the collection is dropped once a document was written.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	id, err := s.store.Insert(ctx)
	if err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	defer func() {
		err := s.store.Drop(context.WithoutCancel(ctx))
		if err != nil {
			rec.Cleanup("collection "+TestCollection, err)
			return
		}
		rec.Pass("DROP", "Dropped test collection")
	}()
	rec.Pass("INSERT", "Inserted document "+idString(id))

	found, err := s.store.Find(ctx, id)
	if err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	if !found {
		rec.Fail("FIND", fmt.Sprintf("Document %s not found after insert", idString(id)), nil)
		return
	}
	rec.Pass("FIND", "Found document")

	if err := s.store.Update(ctx, id); err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("UPDATE", "Updated document")

	if err := s.store.Delete(ctx, id); err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("DELETE", "Deleted document")
}
