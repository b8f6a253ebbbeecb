package main

import "github.com/mvp-joe/depsolver/internal/cli"

func main() {
	cli.Execute()
}
