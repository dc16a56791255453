package main

import "github.com/mcoot/geoguess/internal/cli"

func main() {
	cli.Execute()
}
