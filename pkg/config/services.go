package config

import (
	"github.com/vertti/validate-infra/pkg/envcheck"
	"github.com/vertti/validate-infra/pkg/gradientcheck"
	"github.com/vertti/validate-infra/pkg/kafkacheck"
	"github.com/vertti/validate-infra/pkg/mongocheck"
	"github.com/vertti/validate-infra/pkg/redischeck"
	"github.com/vertti/validate-infra/pkg/searchcheck"
	"github.com/vertti/validate-infra/pkg/spacescheck"
	"github.com/vertti/validate-infra/pkg/sqlcheck"
	"github.com/vertti/validate-infra/pkg/vpc"
)

// Services is the service environment resolved once for a run. Validators
// receive their part of it and never read the process environment.
type Services struct {
	Env      envcheck.EnvGetter
	VPC      *vpc.Detector
	Postgres sqlcheck.Config
	MySQL    sqlcheck.Config
	Mongo    mongocheck.Config
	Redis    redischeck.Config
	Search   searchcheck.Config
	Spaces   spacescheck.Config
	Kafka    kafkacheck.Config
	Gradient gradientcheck.Config
}

// ResolveServices reads every service's variables through a VPC-aware
// resolver. The detector is consulted at most once.
func ResolveServices(s Settings, env envcheck.EnvGetter, detector *vpc.Detector) Services {
	if detector == nil {
		detector = vpc.New(s.VPCCIDR)
	}
	r := &envcheck.Resolver{Getter: env, VPC: detector}
	return Services{
		Env:      env,
		VPC:      detector,
		Postgres: sqlcheck.ConfigFromEnv(r, sqlcheck.Postgres, s.ConnectTimeout),
		MySQL:    sqlcheck.ConfigFromEnv(r, sqlcheck.MySQL, s.ConnectTimeout),
		Mongo:    mongocheck.ConfigFromEnv(r, s.ConnectTimeout),
		Redis:    redischeck.ConfigFromEnv(r, s.ConnectTimeout),
		Search:   searchcheck.ConfigFromEnv(r, s.ConnectTimeout),
		Spaces:   spacescheck.ConfigFromEnv(r, s.ConnectTimeout),
		Kafka:    kafkacheck.ConfigFromEnv(r, s.ConnectTimeout, s.ConsumeTimeout),
		Gradient: gradientcheck.ConfigFromEnv(r, s.ConnectTimeout),
	}
}
