// Command memocache exercises the cache facades: a walkthrough of the
// in-memory facade, a load benchmark, and get/set/refresh/remove against
// the configured distributed backend.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
