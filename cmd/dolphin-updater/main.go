package main

import "github.com/oshokin/dolphin-updater/cmd/dolphin-updater/cmd"

func main() {
	cmd.Execute()
}
