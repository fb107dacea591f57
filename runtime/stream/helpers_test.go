package stream

import (
	"time"

	"goa.design/a2arun/runtime/protocol"
)

func statusWorking() protocol.TaskStatus {
	return protocol.TaskStatus{State: protocol.TaskWaiting, Timestamp: time.Now()}
}

func statusCompleted() protocol.TaskStatus {
	return protocol.TaskStatus{State: protocol.TaskCompleted, Timestamp: time.Now()}
}

func minimalArtifact() protocol.Artifact {
	return protocol.Artifact{Name: "result", Parts: []protocol.Part{protocol.NewTextPart("done")}}
}
