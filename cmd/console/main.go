package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/autosysadmin/console-cli/internal/cmd"
	"github.com/autosysadmin/console-cli/pkg/utils"
)

func main() {
	defer func() {
		if recovered := recover(); recovered != nil {
			utils.CapturePanic("main", recovered)
			utils.FlushSentry()
			panic(recovered)
		}
	}()

	if err := cmd.Execute(); err != nil {
		utils.CaptureError(err, "command failed", nil)
		utils.FlushSentry()
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	utils.FlushSentry()
}
