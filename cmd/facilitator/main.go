package main

import "github.com/BranchManager69/dexter-x402/cli"

func main() {
	cli.Execute()
}
