package main

import "github.com/cppla/qforum/cli"

func main() {
	cli.Execute()
}
