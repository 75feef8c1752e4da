package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// execute runs the command line and releases the store and logger even when
// the command fails.
func execute(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	rootCmd, cc := newRootCommand()
	defer cc.close()

	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	return rootCmd.ExecuteContext(ctx)
}
