// Command ioreplay reconstructs and replays recorded FUSE I/O traces
// (spec.md §1, §6): the front-end explicitly sits outside the core
// reconstruction/replay engine, wiring cobra/pflag/viper configuration onto
// internal/reconstruct, internal/prepare, and internal/replay.
package main

func main() {
	Execute()
}
