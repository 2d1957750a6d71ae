package main

import (
	"os"

	"github.com/templatelab/harvester/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
