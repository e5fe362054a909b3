// Command auto-handoff saves and restores Claude Code session memory before
// the context window fills up.
package main

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	Execute()
}
