package check

// Checker is implemented by all single-step check types.
// Each check validates one aspect of a service or the environment
// and returns a Result indicating success or failure.
//
// Implementations:
//   - envcheck.Check: validates environment variables
//   - tcpcheck.Check: tests TCP connectivity
//   - dnscheck.Check: tests hostname resolution
type Checker interface {
	Run() Result
}
