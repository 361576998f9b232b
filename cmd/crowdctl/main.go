package main

import "github.com/dropDatabas3/crowdauth/cmd/crowdctl/cmd"

func main() {
	cmd.Execute()
}
