package main

import (
	"os"

	"xloractl/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
