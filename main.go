package main

import "smartobd/cmd"

func main() {
	cmd.Execute()
}
