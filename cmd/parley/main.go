// Command parley runs the dialogue agent locally: an interactive chat
// REPL or a websocket server over a shared pattern catalog.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
