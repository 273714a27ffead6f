package main

import "go-bpt/cli"

func main() {
	cli.Execute()
}
