package main

import "auto_resume_go/cmd"

func main() {
	cmd.Execute()
}
