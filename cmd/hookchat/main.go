package main

import (
	"os"

	"github.com/papercomputeco/hookchat/cmd/hookchat/hookchatcmder"
)

func main() {
	cmd := hookchatcmder.NewHookchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
