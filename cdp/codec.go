package cdp

import (
	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// Message is the DevTools wire envelope. It is an alias of cdproto.Message
// rather than a hand-rolled struct: cdproto already generates a correct,
// easyjson-marshalable {id, sessionId, method, params, result, error} shape
// for every CDP domain this service calls (Target, Page, IO, Runtime,
// Network), so re-deriving it here would just be a slower,
// untyped copy of what the wire codec buys us for free.
type Message = cdproto.Message

// SessionID identifies a CDP session attached to one browser target (tab).
type SessionID = target.SessionID

// encode marshals msg using a reusable jwriter.Writer, avoiding a fresh
// allocation per outbound message the way the teacher's connection does.
func encode(enc *jwriter.Writer, msg *Message) ([]byte, error) {
	*enc = jwriter.Writer{}
	msg.MarshalEasyJSON(enc)
	if err := enc.Error; err != nil {
		return nil, err
	}
	return enc.BuildBytes()
}

// decode unmarshals a raw WebSocket text frame into msg using a reusable
// jlexer.Lexer.
func decode(dec *jlexer.Lexer, raw []byte, msg *Message) error {
	*dec = jlexer.Lexer{Data: raw}
	msg.UnmarshalEasyJSON(dec)
	return dec.Error()
}

// unmarshalParams decodes a typed params/result struct out of a raw
// easyjson.RawMessage field, matching the pattern every CDP command wrapper
// in cdproto generates for its Do method.
func unmarshalParams(raw easyjson.RawMessage, v easyjson.Unmarshaler) error {
	if len(raw) == 0 || v == nil {
		return nil
	}
	return easyjson.Unmarshal(raw, v)
}
