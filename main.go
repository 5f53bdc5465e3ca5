package main

import "clickload/cmd"

func main() {
	cmd.Execute()
}
