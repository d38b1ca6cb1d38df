package main

import (
	"github.com/spf13/cobra"

	"github.com/vertti/validate-infra/pkg/validator"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Aliases: []string{"redis", "valkey"},
	Short:   "Check Redis/Valkey: PING, SET, GET and DELETE",
	Args:    cobra.NoArgs,
	RunE:    runE(single(cacheValidator)),
}

var opensearchCmd = &cobra.Command{
	Use:   "opensearch",
	Short: "Check OpenSearch: cluster health, indices and document round trip",
	Args:  cobra.NoArgs,
	RunE:  runE(single(searchValidator)),
}

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "Check Spaces object storage: bucket access and object round trip",
	Args:  cobra.NoArgs,
	RunE:  runE(single(spacesValidator)),
}

var kafkaCmd = &cobra.Command{
	Use:   "kafka",
	Short: "Check Kafka: topics, produce and consume",
	Args:  cobra.NoArgs,
	RunE:  runE(single(kafkaValidator)),
}

var gradientCmd = &cobra.Command{
	Use:   "gradient",
	Short: "Check the serverless inference API and model availability",
	Args:  cobra.NoArgs,
	RunE: runE(single(func(rt *runEnv) validator.Validator {
		return gradientValidator(rt, true)
	})),
}

func init() {
	rootCmd.AddCommand(cacheCmd, opensearchCmd, spacesCmd, kafkaCmd, gradientCmd)
}
