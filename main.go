package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/markis/smooth/internal/args"
)

// main function to load configuration and rewrite the requested input.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], args.PipedStdin()); err != nil {
		if errors.Is(err, args.ErrHelpShown) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
