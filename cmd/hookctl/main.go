// Command hookctl loads Lua hook plugins and dispatches filters and actions
// against them from the command line.
//
//	hookctl filter title "hello" --script plugins/title.lua
//	hookctl action save /tmp/out --script plugins/audit.lua
//	hookctl list --script plugins/*.lua
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := root.execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
