package exchange

import (
	"bytes"
	"encoding/gob"

	"github.com/distgraph/cartesiancut/msg"
)

// GobCodec encodes msg.MetadataPayload with encoding/gob, matching the
// rest of the build's self-describing serialization choice (see
// persist.go's use of gob for LocalIndex snapshots).
type GobCodec struct{}

func (GobCodec) Encode(p msg.MetadataPayload) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte) (msg.MetadataPayload, error) {
	var p msg.MetadataPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return msg.MetadataPayload{}, err
	}
	return p, nil
}
