// Package version provides build and version information for Sentient Blocks.
package version

// Version is the current release version of the stage service.
// Override at build time with:
//
//	go build -ldflags "-X github.com/AaronLay10/SentientBlocks/internal/version.Version=x.y.z"
var Version = "0.1.0"
