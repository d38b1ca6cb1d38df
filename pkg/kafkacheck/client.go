package kafkacheck

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/vertti/validate-infra/pkg/check"
)

// Broker is the part of a Kafka cluster the probe uses. Errors are
// classified with check.Kind.
type Broker interface {
	Topics(ctx context.Context) ([]string, error)
	CreateTopic(ctx context.Context, topic string) error
	Produce(ctx context.Context, topic string, key, value []byte) error
	// Consume reads the topic from the first offset until a message with
	// value arrives or ctx ends. found=false with a nil error means ctx ended.
	Consume(ctx context.Context, topic string, value []byte) (found bool, err error)
	DeleteTopic(ctx context.Context, topic string) error
	Close() error
}

// Connector dials the bootstrap broker.
type Connector func(ctx context.Context, cfg Config) (Broker, error)

const (
	hintCredentials = "Check KAFKA_USERNAME and KAFKA_PASSWORD"
	hintCA          = "Check KAFKA_CA_CERT - may need valid CA certificate"
	// settle gives the cluster time to propagate new topic metadata.
	settle = time.Second
)

type client struct {
	dialer    *kafka.Dialer
	transport *kafka.Transport
	conn      *kafka.Conn
	broker    string
	timeout   time.Duration
}

// Connect dials the broker with SCRAM-SHA-256 over TLS when a username is
// configured, plaintext otherwise.
func Connect(ctx context.Context, cfg Config) (Broker, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, &check.Error{Kind: check.KindNotConfigured, Op: "ca cert", Hint: hintCA, Err: err}
	}
	var mech sasl.Mechanism
	if cfg.Username != "" {
		mech, err = scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
		if err != nil {
			return nil, &check.Error{Kind: check.KindAuthFailed, Op: "sasl", Hint: hintCredentials, Err: err}
		}
	}

	dialer := &kafka.Dialer{
		ClientID:      "validate-infra",
		Timeout:       cfg.Timeout,
		DualStack:     true,
		TLS:           tlsCfg,
		SASLMechanism: mech,
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, classify("dial", err)
	}
	return &client{
		dialer:    dialer,
		transport: &kafka.Transport{ClientID: "validate-infra", DialTimeout: cfg.Timeout, TLS: tlsCfg, SASL: mech},
		conn:      conn,
		broker:    cfg.Address(),
		timeout:   cfg.Timeout,
	}, nil
}

func (c *client) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

func (c *client) Topics(context.Context) ([]string, error) {
	_ = c.conn.SetDeadline(c.deadline())
	parts, err := c.conn.ReadPartitions()
	if err != nil {
		return nil, classify("metadata", err)
	}
	seen := map[string]bool{}
	var topics []string
	for _, p := range parts {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// controller dials the cluster controller, which serves topic admin
// requests.
func (c *client) controller(ctx context.Context) (*kafka.Conn, error) {
	_ = c.conn.SetDeadline(c.deadline())
	b, err := c.conn.Controller()
	if err != nil {
		return nil, classify("controller", err)
	}
	conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(b.Host, strconv.Itoa(b.Port)))
	if err != nil {
		return nil, classify("controller", err)
	}
	_ = conn.SetDeadline(c.deadline())
	return conn, nil
}

func (c *client) CreateTopic(ctx context.Context, topic string) error {
	ctrl, err := c.controller(ctx)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	err = ctrl.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	if err != nil {
		return classify("create topic", err)
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
	}
	return nil
}

func (c *client) Produce(ctx context.Context, topic string, key, value []byte) error {
	w := &kafka.Writer{
		Addr:         kafka.TCP(c.broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: c.timeout,
		Transport:    c.transport,
	}
	defer w.Close()
	return classify("produce", w.WriteMessages(ctx, kafka.Message{Key: key, Value: value}))
}

func (c *client) Consume(ctx context.Context, topic string, value []byte) (bool, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{c.broker},
		Topic:     topic,
		Partition: 0,
		Dialer:    c.dialer,
		MaxBytes:  1 << 20,
	})
	defer r.Close()
	if err := r.SetOffset(kafka.FirstOffset); err != nil {
		return false, classify("consume", err)
	}
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, classify("consume", err)
		}
		if bytes.Equal(m.Value, value) {
			return true, nil
		}
	}
}

func (c *client) DeleteTopic(ctx context.Context, topic string) error {
	ctrl, err := c.controller(ctx)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	return classify("delete topic", ctrl.DeleteTopics(topic))
}

func (c *client) Close() error {
	return c.conn.Close()
}

var _ Broker = (*client)(nil)

// classify labels kafka-go errors by protocol error code, falling back to
// transport and handshake failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		switch kerr {
		case kafka.SASLAuthenticationFailed, kafka.UnsupportedSASLMechanism, kafka.IllegalSASLState:
			return &check.Error{Kind: check.KindAuthFailed, Op: op, Hint: hintCredentials, Err: err}
		case kafka.TopicAuthorizationFailed, kafka.ClusterAuthorizationFailed, kafka.GroupAuthorizationFailed:
			return &check.Error{Kind: check.KindPermissionDenied, Op: op, Err: err}
		}
		return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "sasl"), strings.Contains(msg, "authentication"):
		return &check.Error{Kind: check.KindAuthFailed, Op: op, Hint: hintCredentials, Err: err}
	case strings.Contains(msg, "certificate"), strings.Contains(msg, "x509"), strings.Contains(msg, "tls"):
		return &check.Error{Kind: check.KindUnreachable, Op: op, Hint: hintCA, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &check.Error{Kind: check.KindUnreachable, Op: op, Err: err}
	}
	return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
}
