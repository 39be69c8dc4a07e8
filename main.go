package main

import "github.com/linklab/linkhub/cmd"

func main() {
	cmd.Execute()
}
