package main

import "dsclients/cmd"

// version and releaseRepo can be set during build with -ldflags
var (
	version     = "dev"
	releaseRepo = ""
)

func main() {
	cmd.SetVersion(version)
	cmd.SetReleaseRepo(releaseRepo)
	cmd.Execute()
}
