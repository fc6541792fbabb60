package main

import (
	"os"

	"github.com/vulminator-io/vulminator/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
