// Command edv is the thin CLI entrypoint for the non-linear video
// editing engine: every subcommand below is a few lines of flag
// parsing around a pkg/project or pkg/planner call. It carries no
// domain logic of its own (spec.md §1: the CLI is explicitly out of
// core scope), the way nvr's own HTTP/web layer is a thin shell around
// its pkg/ packages.
package main

import "edv/cmd/edv/cmd"

func main() {
	cmd.Execute()
}
