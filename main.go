package main

import "github.com/arneor/vault-api/cmd"

func main() {
	cmd.Execute()
}
