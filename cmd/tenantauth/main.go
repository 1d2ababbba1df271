package main

import "github.com/aussiebroadwan/tenantauth/internal/tenantauth/cli"

func main() {
	cli.Execute()
}
