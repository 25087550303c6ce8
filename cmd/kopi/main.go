// Command kopi is Kopi's main CLI entry point: install, uninstall,
// list, and resolve JDKs, per spec §6. All command wiring lives in
// internal/cli; main only calls Execute.
package main

import "github.com/kopi-lang/kopi/internal/cli"

func main() {
	cli.Execute()
}
