// mudlink is a line-oriented telnet client for MUD servers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mudlink/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mudlink: %v\n", err)
		os.Exit(1)
	}
}
