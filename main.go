package main

import "github.com/PWRApex/english-prep-companion/apps/cli"

func main() {
	cli.Execute()
}
