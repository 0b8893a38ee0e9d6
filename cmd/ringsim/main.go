// Command ringsim runs the ring-matching settlement simulator: seed a
// chain snapshot, run a settlement batch against it, or serve the
// report service.
package main

import "github.com/LoopringSecondary/protocol2-js/internal/cli"

func main() {
	cli.Execute()
}
