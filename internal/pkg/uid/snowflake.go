package uid

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

// ErrInvalidNode is returned when the node number is outside snowflake's 10-bit range.
var ErrInvalidNode = errors.New("uid: snowflake node must be between 0 and 1023")

// Snowflake generates 63-bit time-ordered identifiers.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator bound to the given node number.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node < 0 || node > 1023 {
		return nil, ErrInvalidNode
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next identifier.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
