package main

import (
	"github.com/robotalks/cmdlink.go/pkg/cli/sh"

	_ "github.com/robotalks/cmdlink.go/pkg/cli/cmds/device"
)

func main() {
	sh.Main()
}
