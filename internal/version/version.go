package version

// Overridden at build time via -ldflags "-X github.com/servyre/inventario/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
