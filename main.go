package main

import "github.com/frahmantamala/garment-erp/cmd"

func main() {
	cmd.Execute()
}
