// The main package for the movierank executable.
package main

import (
	"github.com/JakeFAU/movierank/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
