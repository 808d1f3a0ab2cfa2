package types

// Version is the relkit build version. Overridden at build time with
// -ldflags "-X github.com/fmtr/relkit/pkg/domain/types.Version=...".
var Version = "dev"
