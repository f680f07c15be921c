// Command pipeline is the entry point for the medical consultation audio
// processing pipeline: serve, run, and health, plus the OS-service
// install commands.
package main

import "pipeline/internal/cli"

func main() {
	cli.Execute()
}
