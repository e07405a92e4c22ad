package main

import "github.com/hotspotlabs/ms-go-vouchers/cmd"

func main() {
	cmd.Execute()
}
