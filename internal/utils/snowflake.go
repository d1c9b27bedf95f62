package utils

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
)

func InitSnowflake(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

func NewTransferID() string {
	nodeMu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(1)
	}
	n := node
	nodeMu.Unlock()
	return n.Generate().String()
}
