// Package kafkacheck validates a Kafka cluster by producing a message to an
// ephemeral topic and consuming it back.
package kafkacheck

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
)

const (
	// TopicPrefix prefixes the ephemeral test topic name.
	TopicPrefix = "_validate_infra_test_"
	// DefaultConsumeTimeout bounds the consume step.
	DefaultConsumeTimeout = 15 * time.Second
)

// Service validates one Kafka cluster.
type Service struct {
	Config Config
	Open   Connector // nil means no client is available

	// Now stamps the topic name and payload. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Service using kafka-go.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: Connect}
}

// Validator wraps New in the shared validator state machine.
func Validator(cfg Config, probes validator.Probes) validator.Validator {
	return validator.New(New(cfg), probes)
}

func (s *Service) Profile() validator.Profile {
	return validator.Profile{
		Name:        "Kafka",
		Kind:        validator.KindMessaging,
		Optional:    true,
		ConnectStep: "Connection",
		InstallHint: "Kafka client (kafka-go) not available in this build",
	}
}

func (s *Service) Validate() error {
	if s.Config.Broker == "" {
		return check.Errorf(check.KindNotConfigured, "No Kafka broker configured (KAFKA_BROKER or KAFKA_HOST)")
	}
	for _, v := range []string{s.Config.Broker, s.Config.Username, s.Config.Password} {
		if vars := connurl.Placeholders(v); len(vars) > 0 {
			return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
		}
	}
	return nil
}

func (s *Service) Describe() []string {
	lines := []string{
		"Kafka does not support trusted sources on DigitalOcean; it uses SASL/SCRAM authentication",
		"Broker: " + s.Config.Address(),
	}
	if s.Config.Username != "" {
		lines = append(lines, "Username: "+s.Config.Username)
	}
	if s.Config.Password != "" {
		lines = append(lines, "Password: "+connurl.Mask(s.Config.Password, 4))
	}
	if s.Config.CACert != "" {
		lines = append(lines, fmt.Sprintf("CA Cert: configured (%d bytes)", len(s.Config.CACert)))
	}
	return lines
}

func (s *Service) Endpoint() validator.Endpoint {
	host, port := s.Config.HostPort()
	return validator.Endpoint{Host: host, Port: port}
}

func (s *Service) Driver() error {
	if s.Open == nil {
		return check.Errorf(check.KindDriverMissing, "no Kafka client")
	}
	return nil
}

func (s *Service) Connect(ctx context.Context) (validator.Session, error) {
	b, err := s.Open(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	topics, err := b.Topics(ctx)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	stamp := strconv.FormatInt(now().UnixMilli(), 10)
	consume := s.Config.ConsumeTimeout
	if consume <= 0 {
		consume = DefaultConsumeTimeout
	}
	return &session{
		broker:  b,
		topics:  topics,
		topic:   TopicPrefix + stamp,
		value:   "test-value-" + stamp,
		consume: consume,
	}, nil
}

type session struct {
	broker  Broker
	topics  []string
	topic   string
	value   string
	consume time.Duration
}

func (s *session) ConnectDetail() string {
	return fmt.Sprintf("Connected, %d topics found", len(s.topics))
}

func (s *session) Info(context.Context) (string, error) { return "", nil }

func (s *session) Close() error {
	return s.broker.Close()
}

// Probe creates the test topic, produces one message and consumes it back
// within the consume timeout. The topic is deleted once created.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	if len(s.topics) > 0 {
		first := s.topics
		if len(first) > 5 {
			first = first[:5]
		}
		rec.Verbose("Topics (first 5): %s", strings.Join(first, ", "))
	}

	if err := s.broker.CreateTopic(ctx, s.topic); err != nil {
		rec.Fail("CREATE Topic", "", err)
		return
	}
	rec.Pass("CREATE Topic", "Created "+s.topic)
	defer func() {
		err := s.broker.DeleteTopic(context.WithoutCancel(ctx), s.topic)
		if err != nil {
			rec.Cleanup("topic "+s.topic, err)
			return
		}
		rec.Verbose("Deleted test topic")
	}()

	if err := s.broker.Produce(ctx, s.topic, []byte("test-key"), []byte(s.value)); err != nil {
		rec.Fail("PRODUCE", "", err)
		rec.Fail("CONSUME", "Not attempted: produce failed", nil)
		return
	}
	rec.Pass("PRODUCE", "Message sent")

	cctx, cancel := context.WithTimeout(ctx, s.consume)
	defer cancel()
	found, err := s.broker.Consume(cctx, s.topic, []byte(s.value))
	switch {
	case err != nil:
		rec.Fail("CONSUME", "", err)
	case !found:
		rec.Fail("CONSUME", "Timeout waiting for message", check.Errorf(check.KindOperationFailed, "no message within %s", s.consume))
	default:
		rec.Pass("CONSUME", "Message received")
	}
}
