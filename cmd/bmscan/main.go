package main

import "github.com/blackmagic-debug/blackmagic-sub015/cmd/bmscan/cmd"

func main() {
	cmd.Execute()
}
