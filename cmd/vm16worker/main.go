// Command vm16worker is the worker side of the isolated interpreter
// pool: it reads jobs from stdin and writes verdicts to stdout, one
// at a time, until stdin is closed. It is spawned by protocol/pool
// and is not meant to be run interactively.
package main

import (
	"fmt"
	"os"

	"vm16chain/protocol/pool"
)

func main() {
	if err := pool.RunWorkerLoop(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
