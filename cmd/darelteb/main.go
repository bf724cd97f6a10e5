// Command darelteb manages the Dar El-Teb favorite lab tests from the terminal.
package main

import "os"

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}
