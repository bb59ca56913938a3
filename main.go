package main

import "msgcard/cmd"

func main() {
	cmd.Execute()
}
