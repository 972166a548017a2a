package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	lerrors "github.com/grovetools/sessionlink/errors"
)

// Encode renders m as a JSON object with its "type" discriminator first.
// Response values are written without a discriminator.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, lerrors.New(lerrors.ErrCodeInvalidInput, "cannot encode nil message")
	}

	body, err := json.Marshal(m)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.ErrCodeInvalidInput, fmt.Sprintf("encode %s", m.MessageType()))
	}
	if m.MessageType() == TypeResponse {
		return body, nil
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, lerrors.New(lerrors.ErrCodeInvalidInput, fmt.Sprintf("%s does not encode to an object", m.MessageType()))
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + 32)
	buf.WriteString(`{"type":`)
	typ, _ := json.Marshal(string(m.MessageType()))
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

type envelope struct {
	Type    Type  `json:"type"`
	Success *bool `json:"success"`
}

// Decode parses one inbound frame. Frames with an unknown discriminator, or
// neither a discriminator nor a "success" field, yield INVALID_MESSAGE.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, lerrors.InvalidMessage("malformed JSON", err)
	}

	switch env.Type {
	case TypePageScraped:
		return decodeAs[PageScraped](data)
	case TypeChatUpdated:
		return decodeAs[ChatUpdated](data)
	case TypeSessionSaved:
		return decodeAs[SessionSaved](data)
	case TypeCommand:
		return decodeAs[Command](data)
	case TypeDomChanged:
		return decodeAs[DomChanged](data)
	case TypeError:
		return decodeAs[Error](data)
	case TypePing:
		return decodeAs[Ping](data)
	case TypePong:
		return decodeAs[Pong](data)
	case TypeConnected:
		return decodeAs[Connected](data)
	case TypeDisconnected:
		return decodeAs[Disconnected](data)
	case "":
		if env.Success != nil {
			return decodeAs[Response](data)
		}
		return nil, lerrors.InvalidMessage("missing type", nil)
	default:
		return nil, lerrors.InvalidMessage(fmt.Sprintf("unknown type %q", env.Type), nil).
			WithDetail("type", string(env.Type))
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return nil, lerrors.InvalidMessage(fmt.Sprintf("decode %s", zero.MessageType()), err)
	}
	return v, nil
}
