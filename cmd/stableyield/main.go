// Command stableyield runs the StableYield deployment and developer tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stableyield/deployments/engine/commands"
	"github.com/stableyield/deployments/tasks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	root, err := commands.NewRootCommand(commands.Config{
		Registry: tasks.NewRegistryProvider(),
	})
	if err != nil {
		return err
	}

	return root.ExecuteContext(ctx)
}
