// Command sprintpatch inspects host executables and exercises the patcher
// against fake memory without touching a running game.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
