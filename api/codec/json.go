// Package codec provides the gRPC wire codec for the cuidame services. Messages are plain Go
// structs encoded as JSON.
package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the gRPC content-subtype of the codec ("application/grpc+json").
const Name = "json"

// JSON implements encoding.Codec over encoding/json.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %T: %w", v, err)
	}
	return b, nil
}

func (JSON) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("codec: unmarshal %T: %w", v, err)
	}
	return nil
}

func (JSON) Name() string { return Name }

func init() {
	encoding.RegisterCodec(JSON{})
}
