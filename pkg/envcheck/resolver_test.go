package envcheck

import (
	"testing"

	"github.com/vertti/validate-infra/pkg/testutil"
	"github.com/vertti/validate-infra/pkg/vpc"
)

func TestResolverResolve(t *testing.T) {
	tests := []struct {
		name  string
		vars  map[string]string
		inVPC bool
		want  string
	}{
		{"private unset in vpc uses public", map[string]string{"PUB": "pub_val"}, true, "pub_val"},
		{"private set in vpc wins", map[string]string{"PUB": "pub_val", "PRIV": "priv_val"}, true, "priv_val"},
		{"outside vpc uses public", map[string]string{"PUB": "pub_val", "PRIV": "priv_val"}, false, "pub_val"},
		{"empty private in vpc falls back", map[string]string{"PUB": "pub_val", "PRIV": ""}, true, "pub_val"},
		{"only private outside vpc is absent", map[string]string{"PRIV": "priv_val"}, false, ""},
		{"nothing set", map[string]string{}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{Getter: &testutil.MockEnvGetter{Vars: tt.vars}, VPC: vpc.Fixed(tt.inVPC)}
			if got := r.Resolve("PUB", "PRIV"); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolverNoPrivateName(t *testing.T) {
	r := &Resolver{Getter: &testutil.MockEnvGetter{Vars: map[string]string{"PG_URL": "x"}}, VPC: vpc.Fixed(true)}
	if got := r.Resolve("PG_URL", ""); got != "x" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolverFirst(t *testing.T) {
	r := &Resolver{
		Getter: &testutil.MockEnvGetter{Vars: map[string]string{
			"VALKEY_URL":        "redis://valkey:6379",
			"CACHE_URL":         "redis://cache:6379",
			"CACHE_PRIVATE_URL": "redis://10.0.0.3:6379",
		}},
		VPC: vpc.Fixed(true),
	}

	value, source := r.First(Pair("REDIS_URL"), Pair("VALKEY_URL"), Pair("CACHE_URL"))
	if value != "redis://valkey:6379" || source != "VALKEY_URL" {
		t.Errorf("First() = %q, %q", value, source)
	}

	value, source = r.First(Pair("REDIS_URL"), Pair("CACHE_URL"))
	if value != "redis://10.0.0.3:6379" || source != "CACHE_URL" {
		t.Errorf("First() = %q, %q", value, source)
	}

	if value, source = r.First(Pair("REDIS_URL")); value != "" || source != "" {
		t.Errorf("First() = %q, %q, want empty", value, source)
	}
}

func TestPair(t *testing.T) {
	tests := map[string]Alias{
		"DATABASE_URL": {Public: "DATABASE_URL", Private: "DATABASE_PRIVATE_URL"},
		"MONGODB_URI":  {Public: "MONGODB_URI", Private: "MONGODB_PRIVATE_URI"},
		"KAFKA_BROKER": {Public: "KAFKA_BROKER"},
		"_URL":         {Public: "_URL"},
	}
	for in, want := range tests {
		if got := Pair(in); got != want {
			t.Errorf("Pair(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestResolverAny(t *testing.T) {
	r := &Resolver{Getter: &testutil.MockEnvGetter{Vars: map[string]string{
		"DO_SPACES_KEY":     "key",
		"AWS_ACCESS_KEY_ID": "aws",
	}}}
	if got := r.Any("SPACES_ACCESS_KEY", "DO_SPACES_KEY", "AWS_ACCESS_KEY_ID"); got != "key" {
		t.Errorf("Any() = %q", got)
	}
	if got := r.AnyOr("syd1", "SPACES_REGION", "DO_SPACES_REGION"); got != "syd1" {
		t.Errorf("AnyOr() = %q", got)
	}
}
