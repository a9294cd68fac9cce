package pbft

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/go-msgpack/codec"
)

// encode encodes the data into bytes.
// Data can be of any type.
func encode(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &codec.MsgpackHandle{})
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validHash(hash string) bool {
	if hash == "" || len(hash)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// corruptDigest returns a digest differing from hash in its last character.
func corruptDigest(hash string) string {
	if hash == "" {
		return "00"
	}
	last := byte('0')
	if hash[len(hash)-1] == '0' {
		last = '1'
	}
	return hash[:len(hash)-1] + string(last)
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// panicToString converts a recovered panic value to a string.
func panicToString(r interface{}) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
