// Package main provides the entry point for the slotmarket application.
package main

import (
	"os"

	"github.com/raikusim/slotmarket/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
