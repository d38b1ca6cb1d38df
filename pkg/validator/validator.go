// Package validator holds the state machine shared by every service
// validator: config gate, reachability gate, driver gate, connect, best-effort
// metadata, capability probe and cleanup.
package validator

import (
	"context"

	"github.com/vertti/validate-infra/pkg/check"
)

// Kind identifies a validator family. Combined runs report in Kind order.
type Kind int

const (
	KindEnv Kind = iota
	KindNetwork
	KindTrustedSources
	KindRelational
	KindDocument
	KindCache
	KindSearch
	KindObjectStorage
	KindMessaging
	KindInference
)

var kindNames = map[Kind]string{
	KindEnv:            "env",
	KindNetwork:        "network",
	KindTrustedSources: "trusted-sources",
	KindRelational:     "relational",
	KindDocument:       "document",
	KindCache:          "cache",
	KindSearch:         "search",
	KindObjectStorage:  "object-storage",
	KindMessaging:      "messaging",
	KindInference:      "inference",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Level sets how a note is shown.
type Level int

const (
	LevelInfo    Level = iota
	LevelWarn          // always shown, highlighted
	LevelVerbose       // shown only with --verbose
)

// Note is a report line that is not a verifiable check.
type Note struct {
	Level Level
	Text  string
}

// Outcome is everything one validator run produced.
type Outcome struct {
	Name    string
	Notes   []Note
	Checks  check.List
	Skipped bool
}

// Validator runs one service's checks. Run never returns an error: every
// failure is a failing check in the Outcome.
type Validator interface {
	Kind() Kind
	Name() string
	// Configured reports whether enough configuration is present to run,
	// without touching the network.
	Configured() bool
	Run(ctx context.Context) Outcome
}
