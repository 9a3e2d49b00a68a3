package main

// Version information injected at build time
var (
	AppName   = "ws-chat-client"
	Version   = "dev"
	GitCommit = "unknown"
)

// VersionInfo returns a formatted string containing version information
func VersionInfo() string {
	return AppName + " " + Version + " (commit: " + GitCommit + ")"
}

func UserAgent() string {
	return AppName + "/" + Version
}
