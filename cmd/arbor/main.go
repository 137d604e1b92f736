// Command arbor manages parent-linked node hierarchies from the shell.
package main

import "github.com/mesh-intelligence/arbor/internal/cli"

func main() {
	cli.Execute()
}
