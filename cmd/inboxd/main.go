package main

import (
	"os"

	"github.com/grovetools/inbox/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
