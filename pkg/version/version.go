package version

// Set at build time with -ldflags "-X github.com/LucasSabena/codemobile-sub001/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
)
