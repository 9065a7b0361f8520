// If you are AI: This file decodes and encodes RTMP command messages.
// Layout: name (string), transaction id (number), command object (object or null), args...

package amf0

import (
	"fmt"
)

// Command is a decoded RTMP command.
type Command struct {
	Name          string
	TransactionID float64
	Object        Value
	Args          []Value
}

// DecodeCommand decodes an AMF0 command body.
// Missing transaction id or command object default to 0 and Null.
func DecodeCommand(body []byte) (*Command, error) {
	d := NewDecoder(body)
	first, err := d.Decode()
	if err != nil {
		return nil, fmt.Errorf("command name: %w", err)
	}
	name, ok := first.(String)
	if !ok {
		return nil, fmt.Errorf("%w: command name marker 0x%02x", ErrUnexpectedType, first.Marker())
	}
	cmd := &Command{Name: string(name), Object: Null{}}

	if d.More() {
		v, err := d.Decode()
		if err != nil {
			return nil, fmt.Errorf("transaction id: %w", err)
		}
		if n, ok := v.(Number); ok {
			cmd.TransactionID = float64(n)
		}
	}
	if d.More() {
		v, err := d.Decode()
		if err != nil {
			return nil, fmt.Errorf("command object: %w", err)
		}
		cmd.Object = v
	}
	for d.More() {
		v, err := d.Decode()
		if err != nil {
			return nil, fmt.Errorf("command argument %d: %w", len(cmd.Args), err)
		}
		cmd.Args = append(cmd.Args, v)
	}
	return cmd, nil
}

// Encode encodes the command as a message body.
func (c *Command) Encode() ([]byte, error) {
	obj := c.Object
	if obj == nil {
		obj = Null{}
	}
	values := make([]Value, 0, 3+len(c.Args))
	values = append(values, String(c.Name), Number(c.TransactionID), obj)
	values = append(values, c.Args...)
	return EncodeValues(values...)
}

// Properties returns the command object properties, or nil when it is not an object.
func (c *Command) Properties() Object {
	props, _ := Properties(c.Object)
	return Object(props)
}

// StringArg returns argument i as a string.
func (c *Command) StringArg(i int) (string, bool) {
	if i < 0 || i >= len(c.Args) {
		return "", false
	}
	return AsString(c.Args[i])
}

// NumberArg returns argument i as a number.
func (c *Command) NumberArg(i int) (float64, bool) {
	if i < 0 || i >= len(c.Args) {
		return 0, false
	}
	return AsNumber(c.Args[i])
}

// Status builds an onStatus / _result information object.
func Status(level, code, description string) Object {
	return Object{
		{Key: "level", Value: String(level)},
		{Key: "code", Value: String(code)},
		{Key: "description", Value: String(description)},
	}
}
