package main

import "github.com/hydraide/iothrottle/cmd/throttlectl/cmd"

func main() {
	cmd.Execute()
}
