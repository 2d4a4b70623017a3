package main

import (
	"github.com/mchmarny/dropwatch/pkg/cli"
)

func main() {
	cli.Execute()
}
