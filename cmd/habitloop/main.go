// Package main is the single-binary entrypoint for HabitLoop.
// HabitLoop is a local-first habit progression engine — one binary, all
// state on this machine.
package main

import "github.com/habitloop/habitloop/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
