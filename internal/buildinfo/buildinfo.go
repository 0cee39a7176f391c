// Package buildinfo carries version metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/ZanzyTHEbar/graphvec-bridge-go/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)
