package main

import "github.com/vietddude/dispatch/internal/cli"

func main() {
	cli.Execute()
}
