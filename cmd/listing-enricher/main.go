package main

import cmd "github.com/rohmanhakim/listing-enricher/internal/cli"

func main() {
	cmd.Execute()
}
