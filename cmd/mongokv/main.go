package main

import "github.com/unkn0wn-root/mongokv/internal/cli"

func main() {
	cli.Execute()
}
