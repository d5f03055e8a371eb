// cmd/strata/main.go
//
// Entry point for the strata settings console. Running `strata` with no
// arguments opens the TUI; subcommands cover the headless chores (CSV export
// and the registration link) so they can be scripted.

package main

func main() {
	Execute()
}
