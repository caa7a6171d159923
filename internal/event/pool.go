package event

import (
	"sync"

	"order_cache/internal/domain"
)

// commandPool recycles commands sent through the sequencer inbox.
//
// Usage:
//
//	cmd := AcquireCommand()
//	cmd.Seq = 1
//	cmd.Kind = KindAdd
//	inbox <- cmd // the sequencer releases it after processing
var commandPool = sync.Pool{
	New: func() any {
		return &Command{}
	},
}

// AcquireCommand gets a zeroed Command from the pool.
func AcquireCommand() *Command {
	return commandPool.Get().(*Command)
}

// ReleaseCommand resets cmd and returns it to the pool.
func ReleaseCommand(cmd *Command) {
	if cmd == nil {
		return
	}
	cmd.Seq = 0
	cmd.Kind = 0
	cmd.Order = domain.Order{}
	cmd.OrderID = ""
	cmd.User = ""
	cmd.SecurityID = ""
	cmd.MinQty = 0

	commandPool.Put(cmd)
}

// Warmup pre-allocates pooled commands.
func Warmup() {
	const batchSize = 1000

	cmds := make([]*Command, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		cmds = append(cmds, AcquireCommand())
	}
	for _, cmd := range cmds {
		ReleaseCommand(cmd)
	}
}
