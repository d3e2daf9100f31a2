// flightgraph analyzes the OpenFlights route network.
//
// It loads airports, airlines and routes into an in-memory multigraph and
// answers routing, structural and aggregate queries from the command line
// or over MCP.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/flightgraph/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
