package main

import "tanuki/cli"

func main() {
	cli.Execute()
}
