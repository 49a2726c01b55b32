// ui5omit leaves debug, source and test resources out of a UI5 build result.
package main

import (
	"os"

	"github.com/hupe1980/ui5omit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
