package main

import "github.com/serverlessresearch/gcrest/cmd"

func main() {
	cmd.Execute()
}
