package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
