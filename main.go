package main

import "example.com/supplychain/services/tracker/cmd"

func main() {
	cmd.Execute()
}
