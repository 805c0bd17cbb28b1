package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// Ctrl-C out of `logs -f` or `run` is a normal exit, not an error
	// worth printing.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "shellcache: %v\n", err)
	}
	os.Exit(1)
}
