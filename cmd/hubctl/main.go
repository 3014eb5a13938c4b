package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/internal/hubctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCMD := commands.NewRootCMD()
	err := rootCMD.ExecuteContext(ctx)
	stop()
	if err != nil {
		rootCMD.PrintErrln(color.RedString("Error:"), commands.FormatError(err))
		os.Exit(1)
	}
}
