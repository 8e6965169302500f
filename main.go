package main

import (
	"transcode-orchestrator/app"
	"transcode-orchestrator/pkg/observability"
)

func main() {
	observability.StartProfiling("transcode-orchestrator")
	app.Run()
}
