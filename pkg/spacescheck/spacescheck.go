// Package spacescheck validates S3-compatible object storage such as
// DigitalOcean Spaces: bucket access and a put, get, head, delete cycle on
// a random key.
package spacescheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
)

const (
	// KeyPrefix prefixes every test object key.
	KeyPrefix = "_validate_infra_test/"
	listLimit = 5
)

var testContent = []byte("validate-infra test content")

// Service validates one bucket.
type Service struct {
	Config Config
	Open   Connector // nil means no client is available

	// NewKey returns the object key for a run. Defaults to a random key
	// under KeyPrefix.
	NewKey func() string
}

// New returns a Service using aws-sdk-go-v2.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: Connect}
}

// Validator wraps New in the shared validator state machine.
func Validator(cfg Config, probes validator.Probes) validator.Validator {
	return validator.New(New(cfg), probes)
}

func (s *Service) Profile() validator.Profile {
	return validator.Profile{
		Name:        "Spaces",
		Kind:        validator.KindObjectStorage,
		Optional:    true,
		InstallHint: "S3 client (aws-sdk-go-v2) not available in this build",
	}
}

// Validate treats missing credentials as not configured. Credentials
// without a bucket are a configuration failure.
func (s *Service) Validate() error {
	switch {
	case s.Config.AccessKey == "" || s.Config.SecretKey == "":
		return check.Errorf(check.KindNotConfigured, "Spaces credentials not configured (SPACES_ACCESS_KEY, SPACES_SECRET_KEY)")
	case s.Config.Bucket == "":
		return &check.Error{
			Kind: check.KindOperationFailed,
			Op:   "config",
			Hint: "Set SPACES_BUCKET to the bucket to validate",
			Err:  errors.New("SPACES_BUCKET not set"),
		}
	}
	for _, v := range []string{s.Config.AccessKey, s.Config.SecretKey, s.Config.Bucket, s.Config.Endpoint} {
		if vars := connurl.Placeholders(v); len(vars) > 0 {
			return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
		}
	}
	return nil
}

func (s *Service) Describe() []string {
	return []string{
		"Endpoint: " + s.Config.Endpoint,
		"Region: " + s.Config.Region,
		"Bucket: " + s.Config.Bucket,
		"Access Key: " + connurl.Mask(s.Config.AccessKey, 4),
		"Secret Key: " + connurl.Mask(s.Config.SecretKey, 4),
	}
}

func (s *Service) Endpoint() validator.Endpoint {
	d := connurl.Parse(s.Config.Endpoint)
	port := d.Port
	if port == 0 {
		port = 443
		if strings.EqualFold(d.Scheme, "http") {
			port = 80
		}
	}
	return validator.Endpoint{Host: d.Host, Port: port}
}

func (s *Service) Driver() error {
	if s.Open == nil {
		return check.Errorf(check.KindDriverMissing, "no S3 client")
	}
	return nil
}

func (s *Service) Connect(ctx context.Context) (validator.Session, error) {
	api, err := s.Open(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	key := KeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if s.NewKey != nil {
		key = s.NewKey()
	}
	return &session{b: &bucket{api: api, name: s.Config.Bucket}, key: key, endpoint: s.Config.Endpoint}, nil
}

type session struct {
	b        *bucket
	key      string
	endpoint string
}

func (s *session) Info(context.Context) (string, error) { return "", nil }
func (s *session) Close() error                         { return nil }

// Probe checks bucket access, then runs the object cycle and a best-effort
// listing. Object steps are skipped when the bucket is not accessible.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	if !s.bucketAccess(ctx, rec) {
		return
	}
	s.objects(ctx, rec)

	if n, err := s.b.list(ctx, listLimit); err != nil {
		rec.Fail("LIST", "", err)
	} else {
		rec.Pass("LIST", fmt.Sprintf("Can list objects (%d shown)", n))
	}
}

func (s *session) bucketAccess(ctx context.Context, rec *validator.Recorder) bool {
	err := s.b.head(ctx)
	if err == nil {
		rec.Pass("Bucket", fmt.Sprintf("Bucket '%s' accessible", s.b.name))
		return true
	}
	switch {
	case check.StatusOf(err) == http.StatusNotFound:
		rec.Fail("Bucket", fmt.Sprintf("Bucket '%s' not found", s.b.name),
			check.WrapHint(check.KindOperationFailed, "Create the bucket or check SPACES_BUCKET name", err))
	case check.StatusOf(err) == http.StatusForbidden:
		rec.Fail("Bucket", "Access denied to bucket",
			check.WrapHint(check.KindPermissionDenied, "Check Spaces access key permissions", err))
	case check.Classify(err) == check.KindUnreachable:
		rec.Fail("Connection", "Cannot reach endpoint: "+s.endpoint, err)
	default:
		rec.Fail("Bucket", "", err)
	}
	return false
}

func (s *session) objects(ctx context.Context, rec *validator.Recorder) {
	if err := s.b.put(ctx, s.key, testContent); err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("PUT", "Uploaded "+s.key)

	deleted := false
	defer func() {
		if !deleted {
			rec.Cleanup("object "+s.key, s.b.remove(context.WithoutCancel(ctx), s.key))
		}
	}()

	got, err := s.b.get(ctx, s.key)
	switch {
	case err != nil:
		rec.Fail("Operations", "", err)
		return
	case string(got) != string(testContent):
		rec.Fail("GET", "Content mismatch", nil)
	default:
		rec.Pass("GET", "Retrieved correct content")
	}

	size, err := s.b.size(ctx, s.key)
	if err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("HEAD", fmt.Sprintf("Object size: %d bytes", size))

	if err := s.b.remove(ctx, s.key); err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	deleted = true
	rec.Pass("DELETE", "Deleted test object")

	_, err = s.b.size(ctx, s.key)
	switch {
	case err == nil:
		rec.Cleanup("object "+s.key, errors.New("object still exists after DELETE"))
	case check.StatusOf(err) == http.StatusNotFound:
		rec.Verbose("Object removed")
	default:
		rec.Cleanup("object "+s.key, err)
	}
}
