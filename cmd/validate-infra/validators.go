package main

import (
	"github.com/vertti/validate-infra/pkg/envcheck"
	"github.com/vertti/validate-infra/pkg/gradientcheck"
	"github.com/vertti/validate-infra/pkg/kafkacheck"
	"github.com/vertti/validate-infra/pkg/mongocheck"
	"github.com/vertti/validate-infra/pkg/netcheck"
	"github.com/vertti/validate-infra/pkg/redischeck"
	"github.com/vertti/validate-infra/pkg/searchcheck"
	"github.com/vertti/validate-infra/pkg/spacescheck"
	"github.com/vertti/validate-infra/pkg/sqlcheck"
	"github.com/vertti/validate-infra/pkg/trustcheck"
	"github.com/vertti/validate-infra/pkg/validator"
)

func envValidator(rt *runEnv) validator.Validator {
	return &envcheck.Validator{Required: rt.settings.Required, Getter: rt.services.Env}
}

func networkValidator(rt *runEnv) validator.Validator {
	return netcheck.New(rt.probes, rt.services.VPC, rt.settings.ConnectTimeout)
}

func trustedSourcesValidator(rt *runEnv) validator.Validator {
	return trustcheck.New(rt.services.Env, rt.services.VPC, rt.probes, rt.settings.ConnectTimeout)
}

func postgresValidator(rt *runEnv) validator.Validator {
	return sqlcheck.Validator(rt.services.Postgres, rt.probes)
}

func mysqlValidator(rt *runEnv) validator.Validator {
	return sqlcheck.Validator(rt.services.MySQL, rt.probes)
}

func mongoValidator(rt *runEnv) validator.Validator {
	return mongocheck.Validator(rt.services.Mongo, rt.probes)
}

func databaseValidators(rt *runEnv) []validator.Validator {
	return []validator.Validator{postgresValidator(rt), mysqlValidator(rt), mongoValidator(rt)}
}

func cacheValidator(rt *runEnv) validator.Validator {
	return redischeck.Validator(rt.services.Redis, rt.probes)
}

func searchValidator(rt *runEnv) validator.Validator {
	return searchcheck.Validator(rt.services.Search, rt.probes)
}

func spacesValidator(rt *runEnv) validator.Validator {
	return spacescheck.Validator(rt.services.Spaces, rt.probes)
}

func kafkaValidator(rt *runEnv) validator.Validator {
	return kafkacheck.Validator(rt.services.Kafka, rt.probes)
}

// gradientValidator checks the default endpoint even without configuration
// when always is set.
func gradientValidator(rt *runEnv, always bool) validator.Validator {
	return gradientcheck.Validator(rt.services.Gradient, rt.probes, always)
}

// serviceValidators is every service validator, in registration order.
func serviceValidators(rt *runEnv) []validator.Validator {
	vs := databaseValidators(rt)
	return append(vs,
		cacheValidator(rt),
		searchValidator(rt),
		spacesValidator(rt),
		kafkaValidator(rt),
		gradientValidator(rt, false),
	)
}

// single wraps a one-validator builder for runE. The validator always runs,
// so missing configuration is reported.
func single(build func(*runEnv) validator.Validator) func(*runEnv, []string) ([]validator.Validator, bool, error) {
	return func(rt *runEnv, _ []string) ([]validator.Validator, bool, error) {
		return []validator.Validator{build(rt)}, false, nil
	}
}
