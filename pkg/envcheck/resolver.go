package envcheck

// Topology reports whether the process runs inside the private network.
type Topology interface {
	Inside() bool
}

// Alias is a public/private pair of variable names for one endpoint.
// Private may be empty.
type Alias struct {
	Public  string
	Private string
}

// Pair builds an Alias whose private name is derived by the platform's
// convention: FOO_URL pairs with FOO_PRIVATE_URL, FOO_URI with FOO_PRIVATE_URI.
func Pair(public string) Alias {
	for _, suffix := range []string{"_URL", "_URI"} {
		if n := len(public) - len(suffix); n > 0 && public[n:] == suffix {
			return Alias{Public: public, Private: public[:n] + "_PRIVATE" + suffix}
		}
	}
	return Alias{Public: public}
}

// Resolver looks up connection variables, preferring private endpoints when
// running inside the VPC.
type Resolver struct {
	Getter EnvGetter
	VPC    Topology
}

// Get returns the value of name, or "" when unset.
func (r *Resolver) Get(name string) string {
	v, _ := r.Getter.LookupEnv(name)
	return v
}

// Resolve returns the private variable's value when inside the VPC and it is
// set, otherwise the public variable's value. The result is "" when neither
// applies.
func (r *Resolver) Resolve(public, private string) string {
	if private != "" && r.VPC != nil && r.VPC.Inside() {
		if v := r.Get(private); v != "" {
			return v
		}
	}
	return r.Get(public)
}

// First resolves each alias in order and returns the first value found along
// with the public name it was found under.
func (r *Resolver) First(aliases ...Alias) (value, source string) {
	for _, a := range aliases {
		if v := r.Resolve(a.Public, a.Private); v != "" {
			return v, a.Public
		}
	}
	return "", ""
}

// Any returns the first non-empty value among names.
func (r *Resolver) Any(names ...string) string {
	for _, n := range names {
		if v := r.Get(n); v != "" {
			return v
		}
	}
	return ""
}

// AnyOr is Any with a fallback.
func (r *Resolver) AnyOr(fallback string, names ...string) string {
	if v := r.Any(names...); v != "" {
		return v
	}
	return fallback
}
