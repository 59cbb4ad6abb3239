package main

import "github.com/pishro-io/pishro/internal/cmd"

func main() {
	cmd.Execute()
}
