// Command akademictl runs operator tasks that have no page in the back office:
// provisioning the first administrator, audit retention and queue inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	live := newLiveBackends()
	defer live.Close()

	if err := newRootCmd(live).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
