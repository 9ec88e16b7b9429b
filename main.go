package main

import "github.com/venuehub/ms-go-booking/cmd"

func main() {
	cmd.Execute()
}
