package main

import (
	"github.com/modprep/modprep/cmd"
)

func main() {
	cmd.Start()
}
