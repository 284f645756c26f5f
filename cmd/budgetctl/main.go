// Command budgetctl administers a spendpoints database: migrations, period
// conversion, user reports and house standings.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
