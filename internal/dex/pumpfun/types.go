// =============================
// File: internal/dex/pumpfun/types.go
// =============================
package pumpfun

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// GlobalConfig represents the PumpFun global account (PDA ["global"]).
// Fetched fresh per trade, never cached.
type GlobalConfig struct {
	Discriminator               [8]byte
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// BondingCurveState снимок кривой (PDA ["bonding-curve", mint]).
// Значение не мутируется, проекции возвращают новые копии.
type BondingCurveState struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// AfterBuy состояние кривой после покупки tokensOut за solIn.
func (s BondingCurveState) AfterBuy(solIn, tokensOut uint64) BondingCurveState {
	next := s
	next.VirtualTokenReserves = subFloor(s.VirtualTokenReserves, tokensOut)
	next.RealTokenReserves = subFloor(s.RealTokenReserves, tokensOut)
	next.VirtualSolReserves = s.VirtualSolReserves + solIn
	next.RealSolReserves = s.RealSolReserves + solIn
	return next
}

// AfterSell состояние кривой после продажи tokensIn с валовым выходом grossSol.
func (s BondingCurveState) AfterSell(tokensIn, grossSol uint64) BondingCurveState {
	next := s
	next.VirtualTokenReserves = s.VirtualTokenReserves + tokensIn
	next.RealTokenReserves = s.RealTokenReserves + tokensIn
	next.VirtualSolReserves = subFloor(s.VirtualSolReserves, grossSol)
	next.RealSolReserves = subFloor(s.RealSolReserves, grossSol)
	return next
}

func (g *GlobalConfig) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = readFixed(dec, g.Discriminator[:]); err != nil {
		return err
	}
	if g.Initialized, err = dec.ReadBool(); err != nil {
		return err
	}
	if err = readFixed(dec, g.Authority[:]); err != nil {
		return err
	}
	if err = readFixed(dec, g.FeeRecipient[:]); err != nil {
		return err
	}
	return readUint64s(dec,
		&g.InitialVirtualTokenReserves,
		&g.InitialVirtualSolReserves,
		&g.InitialRealTokenReserves,
		&g.TokenTotalSupply,
		&g.FeeBasisPoints,
	)
}

func (g GlobalConfig) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(g.Discriminator[:], false); err != nil {
		return err
	}
	if err := enc.WriteBool(g.Initialized); err != nil {
		return err
	}
	if err := enc.WriteBytes(g.Authority[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(g.FeeRecipient[:], false); err != nil {
		return err
	}
	return writeUint64s(enc,
		g.InitialVirtualTokenReserves,
		g.InitialVirtualSolReserves,
		g.InitialRealTokenReserves,
		g.TokenTotalSupply,
		g.FeeBasisPoints,
	)
}

func (s *BondingCurveState) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = readFixed(dec, s.Discriminator[:]); err != nil {
		return err
	}
	if err = readUint64s(dec,
		&s.VirtualTokenReserves,
		&s.VirtualSolReserves,
		&s.RealTokenReserves,
		&s.RealSolReserves,
		&s.TokenTotalSupply,
	); err != nil {
		return err
	}
	s.Complete, err = dec.ReadBool()
	return err
}

func (s BondingCurveState) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(s.Discriminator[:], false); err != nil {
		return err
	}
	if err := writeUint64s(enc,
		s.VirtualTokenReserves,
		s.VirtualSolReserves,
		s.RealTokenReserves,
		s.RealSolReserves,
		s.TokenTotalSupply,
	); err != nil {
		return err
	}
	return enc.WriteBool(s.Complete)
}

func readFixed(dec *bin.Decoder, dst []byte) error {
	b, err := dec.ReadNBytes(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func readUint64s(dec *bin.Decoder, dst ...*uint64) (err error) {
	for _, d := range dst {
		if *d, err = dec.ReadUint64(bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func writeUint64s(enc *bin.Encoder, values ...uint64) error {
	for _, v := range values {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func subFloor(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
