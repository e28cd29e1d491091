package main

import (
	"github.com/serwidlick/backstage/internal/cli"
)

func main() {
	cli.Execute()
}
