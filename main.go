package main

import (
	"github.com/namastexlabs/automagik-omni-go/cmd"
)

func main() {
	cmd.Execute()
}
