package main

import "sunbeam/internal/cli"

func main() {
	cli.Execute()
}
