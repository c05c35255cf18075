package main

import "poopyPalsAPI/internal/cli"

func main() {
	cli.Execute()
}
