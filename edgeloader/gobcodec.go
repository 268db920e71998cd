package edgeloader

import (
	"bytes"
	"encoding/gob"

	"github.com/distgraph/cartesiancut/msg"
)

// GobCodec encodes msg.EdgeBatchPayload with encoding/gob, the same
// choice as exchange.GobCodec for MetadataExchange.
type GobCodec struct{}

func (GobCodec) Encode(p msg.EdgeBatchPayload) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte) (msg.EdgeBatchPayload, error) {
	var p msg.EdgeBatchPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return msg.EdgeBatchPayload{}, err
	}
	return p, nil
}
