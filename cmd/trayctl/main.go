package main

import (
	"os"
	"runtime"

	"github.com/shelepuginivan/nativetray/cmd/trayctl/commands"
)

// Native tray libraries expect every call on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
