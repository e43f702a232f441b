// Package buildinfo reports the version of the running pointerd binary.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/pointerd/internal/infra/buildinfo.Version=v1.0.0"
//
// Fields left unset are filled from the VCS stamps the Go toolchain
// embeds in the binary.
package buildinfo
