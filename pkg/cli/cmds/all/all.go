// Package all registers all shell commands.
package all

import (
	// command providers
	_ "github.com/robotalks/thermo.go/pkg/cli/cmds/calc"
	_ "github.com/robotalks/thermo.go/pkg/cli/cmds/frames"
)
