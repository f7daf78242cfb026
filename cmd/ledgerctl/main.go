// Command ledgerctl is a command-line client for the accounting integration.
package main

import "github.com/dvcrn/ledgerlink/internal/cli"

func main() {
	cli.Execute()
}
