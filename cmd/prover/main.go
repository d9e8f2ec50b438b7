// Offline prover CLI
// Executes or proves a batch witness read from stdin. See pkg/prover.RunCLI.

package main

import (
	"fmt"
	"os"

	"github.com/certen/ledger-rollup/pkg/prover"
)

func main() {
	if err := prover.RunCLI(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
