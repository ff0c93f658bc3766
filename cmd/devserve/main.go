package main

import "github.com/kmullins/devserve/internal/cli"

func main() {
	cli.Execute()
}
