package main

import "github.com/RikyDRC/agro-sense-control-hub-sub001/cmd"

func main() {
	cmd.Execute()
}
