package main

import "pnodeatlas/cmd"

func main() {
	cmd.Execute()
}
