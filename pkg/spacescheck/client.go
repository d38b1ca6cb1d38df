package spacescheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/vertti/validate-infra/pkg/check"
)

// S3API defines the S3 operations we use.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

// Connector builds an S3 client for cfg. It does no network I/O.
type Connector func(ctx context.Context, cfg Config) (S3API, error)

// Connect returns an S3 client with static credentials pointed at the
// configured endpoint. Retries are disabled so each step reports the first
// failure.
func Connect(ctx context.Context, cfg Config) (S3API, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRetryMaxAttempts(1),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, check.Wrap(check.KindNotConfigured, "load aws config", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	}), nil
}

// bucket adapts S3API to the probe's steps and labels every error.
type bucket struct {
	api  S3API
	name string
}

func (b *bucket) head(ctx context.Context) error {
	_, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.name)})
	return classify("head bucket", err)
}

func (b *bucket) put(ctx context.Context, key string, body []byte) error {
	_, err := b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/plain"),
	})
	return classify("put object", err)
}

func (b *bucket) get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.name), Key: aws.String(key)})
	if err != nil {
		return nil, classify("get object", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	return data, classify("get object", err)
}

func (b *bucket) size(ctx context.Context, key string) (int64, error) {
	out, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.name), Key: aws.String(key)})
	if err != nil {
		return 0, classify("head object", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (b *bucket) remove(ctx context.Context, key string) error {
	_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.name), Key: aws.String(key)})
	return classify("delete object", err)
}

func (b *bucket) list(ctx context.Context, limit int32) (int, error) {
	out, err := b.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(b.name), MaxKeys: aws.Int32(limit)})
	if err != nil {
		return 0, classify("list objects", err)
	}
	return int(aws.ToInt32(out.KeyCount)), nil
}

// classify labels an SDK error by HTTP status and S3 error code. The
// message becomes "Code: Message" when the service returned one.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	status := 0
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status = re.HTTPStatusCode()
	}
	msg := err
	code := ""
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
		if m := apiErr.ErrorMessage(); m != "" {
			msg = fmt.Errorf("%s: %s", code, m)
		} else {
			msg = errors.New(code)
		}
	}

	e := &check.Error{Op: op, Status: status, Err: msg}
	switch {
	case code == "InvalidAccessKeyId" || code == "SignatureDoesNotMatch" || status == http.StatusUnauthorized:
		e.Kind = check.KindAuthFailed
		e.Hint = "Check SPACES_ACCESS_KEY and SPACES_SECRET_KEY"
	case code == "AccessDenied" || status == http.StatusForbidden:
		e.Kind = check.KindPermissionDenied
		e.Hint = "Check Spaces key has write permissions"
	case status != 0:
		e.Kind = check.KindOperationFailed
	case isNetwork(err):
		e.Kind = check.KindUnreachable
		e.Hint = "Check SPACES_ENDPOINT or SPACES_REGION"
	default:
		e.Kind = check.KindOperationFailed
	}
	return e
}

func isNetwork(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "no such host")
}
