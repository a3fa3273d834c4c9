package main

import (
	"github.com/deepreview/deepreview-cli/cmd"
)

func main() {
	cmd.Execute()
}
