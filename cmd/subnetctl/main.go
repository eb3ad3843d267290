// Command subnetctl monitors and authenticates the Subnet agent session.
package main

import (
	"fmt"
	"os"

	"github.com/subnetconsole/agentops/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
