package main

import "github.com/lehigh-university-libraries/ezid-batch/cmd"

func main() {
	cmd.Execute()
}
