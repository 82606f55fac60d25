// Command matchctl runs the lender matcher offline and manages its artifacts.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
