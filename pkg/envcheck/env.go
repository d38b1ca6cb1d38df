package envcheck

import "os"

// EnvGetter abstracts environment access for testability.
type EnvGetter interface {
	LookupEnv(key string) (string, bool)
	Environ() []string
}

type RealEnvGetter struct{}

func (r *RealEnvGetter) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (r *RealEnvGetter) Environ() []string {
	return os.Environ()
}
