// =============================
// File: internal/dex/pumpfun/events.go
// =============================
package pumpfun

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	CreateEventDiscriminator    = anchorDiscriminator("event", "CreateEvent")
	TradeEventDiscriminator     = anchorDiscriminator("event", "TradeEvent")
	CompleteEventDiscriminator  = anchorDiscriminator("event", "CompleteEvent")
	SetParamsEventDiscriminator = anchorDiscriminator("event", "SetParamsEvent")
)

var (
	// ErrUnknownEvent дискриминатор не принадлежит ни одному событию программы.
	ErrUnknownEvent = errors.New("unknown event discriminator")
	// ErrMalformedEvent тело события не соответствует макету.
	ErrMalformedEvent = errors.New("malformed event data")
)

const programDataPrefix = "Program data: "

// Event закрытый набор событий программы.
type Event interface {
	Kind() string
	isEvent()
}

type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	User         solana.PublicKey
}

type TradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

type CompleteEvent struct {
	User         solana.PublicKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Timestamp    int64
}

type SetParamsEvent struct {
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

func (CreateEvent) Kind() string    { return "create" }
func (TradeEvent) Kind() string     { return "trade" }
func (CompleteEvent) Kind() string  { return "complete" }
func (SetParamsEvent) Kind() string { return "setParams" }

func (CreateEvent) isEvent()    {}
func (TradeEvent) isEvent()     {}
func (CompleteEvent) isEvent()  {}
func (SetParamsEvent) isEvent() {}

// DecodeEvent decodes an Anchor event payload (discriminator + Borsh body).
func DecodeEvent(data []byte) (Event, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: event payload is %d bytes", ErrMalformedEvent, len(data))
	}

	var disc [8]byte
	copy(disc[:], data[:8])
	dec := bin.NewBorshDecoder(data[8:])

	var (
		ev  Event
		err error
	)
	switch disc {
	case CreateEventDiscriminator:
		var e CreateEvent
		err = decodeAll(dec,
			stringField(&e.Name), stringField(&e.Symbol), stringField(&e.URI),
			keyField(&e.Mint), keyField(&e.BondingCurve), keyField(&e.User))
		ev = e
	case TradeEventDiscriminator:
		var e TradeEvent
		err = decodeAll(dec,
			keyField(&e.Mint), u64Field(&e.SolAmount), u64Field(&e.TokenAmount), boolField(&e.IsBuy),
			keyField(&e.User), i64Field(&e.Timestamp), u64Field(&e.VirtualSolReserves), u64Field(&e.VirtualTokenReserves))
		ev = e
	case CompleteEventDiscriminator:
		var e CompleteEvent
		err = decodeAll(dec,
			keyField(&e.User), keyField(&e.Mint), keyField(&e.BondingCurve), i64Field(&e.Timestamp))
		ev = e
	case SetParamsEventDiscriminator:
		var e SetParamsEvent
		err = decodeAll(dec,
			keyField(&e.FeeRecipient), u64Field(&e.InitialVirtualTokenReserves), u64Field(&e.InitialVirtualSolReserves),
			u64Field(&e.InitialRealTokenReserves), u64Field(&e.TokenTotalSupply), u64Field(&e.FeeBasisPoints))
		ev = e
	default:
		return nil, fmt.Errorf("%w: %x", ErrUnknownEvent, disc)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Kind(), err)
	}
	return ev, nil
}

// DecodeLogs extracts program events from transaction log lines.
// Payloads of other programs are ignored.
func DecodeLogs(logs []string) ([]Event, error) {
	var events []Event
	for _, line := range logs {
		payload, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			continue
		}
		ev, err := DecodeEvent(data)
		if errors.Is(err, ErrUnknownEvent) {
			continue
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// EncodeEvent produces the payload DecodeEvent accepts.
func EncodeEvent(ev Event) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	var err error
	switch e := ev.(type) {
	case CreateEvent:
		err = encodeAll(enc, CreateEventDiscriminator[:],
			e.Name, e.Symbol, e.URI, e.Mint, e.BondingCurve, e.User)
	case TradeEvent:
		err = encodeAll(enc, TradeEventDiscriminator[:],
			e.Mint, e.SolAmount, e.TokenAmount, e.IsBuy, e.User, e.Timestamp, e.VirtualSolReserves, e.VirtualTokenReserves)
	case CompleteEvent:
		err = encodeAll(enc, CompleteEventDiscriminator[:],
			e.User, e.Mint, e.BondingCurve, e.Timestamp)
	case SetParamsEvent:
		err = encodeAll(enc, SetParamsEventDiscriminator[:],
			e.FeeRecipient, e.InitialVirtualTokenReserves, e.InitialVirtualSolReserves,
			e.InitialRealTokenReserves, e.TokenTotalSupply, e.FeeBasisPoints)
	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type fieldReader func(dec *bin.Decoder) error

func decodeAll(dec *bin.Decoder, fields ...fieldReader) error {
	for _, f := range fields {
		if err := f(dec); err != nil {
			return err
		}
	}
	return nil
}

func keyField(dst *solana.PublicKey) fieldReader {
	return func(dec *bin.Decoder) error { return readFixed(dec, dst[:]) }
}

func u64Field(dst *uint64) fieldReader {
	return func(dec *bin.Decoder) (err error) {
		*dst, err = dec.ReadUint64(bin.LE)
		return err
	}
}

func i64Field(dst *int64) fieldReader {
	return func(dec *bin.Decoder) (err error) {
		*dst, err = dec.ReadInt64(bin.LE)
		return err
	}
}

func boolField(dst *bool) fieldReader {
	return func(dec *bin.Decoder) (err error) {
		*dst, err = dec.ReadBool()
		return err
	}
}

func stringField(dst *string) fieldReader {
	return func(dec *bin.Decoder) error {
		n, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return err
		}
		if int(n) > dec.Remaining() {
			return fmt.Errorf("string of %d bytes, %d remaining", n, dec.Remaining())
		}
		b, err := dec.ReadNBytes(int(n))
		if err != nil {
			return err
		}
		*dst = string(b)
		return nil
	}
}

func encodeAll(enc *bin.Encoder, discriminator []byte, values ...any) error {
	if err := enc.WriteBytes(discriminator, false); err != nil {
		return err
	}
	for _, v := range values {
		var err error
		switch x := v.(type) {
		case string:
			err = writeBorshString(enc, x)
		case solana.PublicKey:
			err = enc.WriteBytes(x[:], false)
		case uint64:
			err = enc.WriteUint64(x, bin.LE)
		case int64:
			err = enc.WriteInt64(x, bin.LE)
		case bool:
			err = enc.WriteBool(x)
		default:
			err = fmt.Errorf("unsupported field %T", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
