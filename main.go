package main

import "github.com/cwilper/mkrepo/cmd"

func main() {
	cmd.Execute()
}
