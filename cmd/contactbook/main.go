// Command contactbook manages a contact book from the command line and serves
// it over a JSON HTTP API.
package main

import (
	"fmt"
	"os"
)

const (
	Version = "0.1.0"
	appName = "contactbook"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}
