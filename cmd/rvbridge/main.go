package main

import "github.com/OpenTraceLab/OpenTraceRVBridge/cmd/rvbridge/cmd"

func main() {
	cmd.Execute()
}
