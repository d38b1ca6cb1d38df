package spacescheck

import (
	"time"

	"github.com/vertti/validate-infra/pkg/envcheck"
)

// DefaultRegion is used when no region variable is set.
const DefaultRegion = "syd1"

// Config is the resolved object storage configuration.
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	Timeout   time.Duration
}

// ConfigFromEnv resolves credentials, bucket, region and endpoint from their
// Spaces, DO_SPACES and AWS aliases. The endpoint defaults to the regional
// Spaces endpoint.
func ConfigFromEnv(r *envcheck.Resolver, timeout time.Duration) Config {
	region := r.AnyOr(DefaultRegion, "SPACES_REGION", "DO_SPACES_REGION", "AWS_REGION")
	return Config{
		AccessKey: r.Any("SPACES_ACCESS_KEY", "DO_SPACES_KEY", "AWS_ACCESS_KEY_ID"),
		SecretKey: r.Any("SPACES_SECRET_KEY", "DO_SPACES_SECRET", "AWS_SECRET_ACCESS_KEY"),
		Bucket:    r.Any("SPACES_BUCKET", "DO_SPACES_BUCKET", "S3_BUCKET"),
		Region:    region,
		Endpoint: r.AnyOr("https://"+region+".digitaloceanspaces.com",
			"SPACES_ENDPOINT", "DO_SPACES_ENDPOINT", "AWS_ENDPOINT_URL"),
		Timeout: timeout,
	}
}
