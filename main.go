package main

import "splpay/cmd"

func main() {
	cmd.Execute()
}
