// Command gqlengine executes GraphQL documents against the demo schema.
package main

import (
	"os"
)

func main() {
	cmd, a := newRootCmd()
	if err := a.execute(cmd); err != nil {
		os.Exit(1)
	}
}
