package api

// ServiceName identifies the server in logs and client output.
const ServiceName = "go-echo-server"

// Version is the build version, overridden at link time with
// -ldflags "-X github.com/sirosfoundation/go-echo-server/internal/api.Version=..."
var Version = "dev"
