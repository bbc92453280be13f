package tool

// Version is overridden at build time with -ldflags "-X github.com/moyoez/gcomserver-go/tool.Version=...".
var Version = "dev"
