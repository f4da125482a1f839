package mqtt

import (
	"errors"
	"fmt"
	"log"

	"github.com/sweeney/dimmer/internal/waveform"
)

// ErrUnknownCommand is returned for a tag the dimmer does not handle.
var ErrUnknownCommand = errors.New("mqtt: unknown command")

// Controls is the part of the dimmer that commands act on.
type Controls interface {
	Switch(on bool)
	Off()
	On()
	Lounge()
	SetPower(power uint8)
	SetMode(m waveform.Mode) error
	SetEffectKind(kind waveform.EffectKind) error
	SetEffectInput(v int)
}

// Dispatch applies a command. The off, on and lounge tags act only on a
// true payload.
func Dispatch(c Controls, cmd Command) error {
	switch cmd.Tag {
	case TagOffOn, TagOff, TagOn, TagLounge:
		b, err := ParseBool(cmd.Payload)
		if err != nil {
			return err
		}
		switch {
		case cmd.Tag == TagOffOn:
			c.Switch(b)
		case !b:
		case cmd.Tag == TagOff:
			c.Off()
		case cmd.Tag == TagOn:
			c.On()
		case cmd.Tag == TagLounge:
			c.Lounge()
		}
		return nil

	case TagDim:
		p, err := ParsePercent(cmd.Payload)
		if err != nil {
			return err
		}
		c.SetPower(p)
		return nil

	case TagMode:
		m, err := waveform.ParseMode(cmd.Payload)
		if err != nil {
			return err
		}
		return c.SetMode(m)

	case TagEffect:
		k, err := waveform.ParseEffect(cmd.Payload)
		if err != nil {
			return err
		}
		return c.SetEffectKind(k)

	case TagInput:
		v, err := ParseInt(cmd.Payload)
		if err != nil {
			return err
		}
		c.SetEffectInput(v)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Tag)
}

// NewCommandHandler returns a handler that dispatches to c and logs
// rejected commands.
func NewCommandHandler(c Controls) CommandHandler {
	return func(cmd Command) {
		if err := Dispatch(c, cmd); err != nil {
			log.Printf("mqtt: command %s=%q rejected: %v", cmd.Tag, cmd.Payload, err)
			return
		}
		log.Printf("mqtt: command %s=%q", cmd.Tag, cmd.Payload)
	}
}
