package main

import "github.com/forPelevin/clipdeck/internal/cli"

func main() {
	cli.Main()
}
