package reqparse

import (
	"github.com/arcsign/hsmemu/internal/emu/emuerr"
	"github.com/arcsign/hsmemu/internal/emu/types"
)

// SignEnvelope is the common header of every Sign request, before
// dispatching req_payload to a schema-specific sub-parser.
type SignEnvelope struct {
	HasExtraPayloads bool
	Schema           types.Schema
	WalletUID        []byte // 32 bytes, discarded by the core

	Bitcoin  *BitcoinSign
	EthTx    *EthereumTransactionSign
	EthMsg   *EthereumMessageSign
	Extra    *ExtraDataSign
	Generic  *GenericSign
}

const signEnvelopeHead = 1 + 1 + 32

// ParseSign parses the Sign envelope and dispatches req_payload to the
// schema-specific sub-parser. Schemas with no dedicated parser (anything
// other than the five named ones) fall back to the generic parser.
func ParseSign(data []byte) (SignEnvelope, error) {
	if len(data) < signEnvelopeHead {
		return SignEnvelope{}, emuerr.InvalidMsgf("sign: want at least %d bytes, got %d", signEnvelopeHead, len(data))
	}

	env := SignEnvelope{
		HasExtraPayloads: data[0] != 0,
		Schema:           types.Schema(data[1]),
		WalletUID:        append([]byte(nil), data[2:34]...),
	}
	rest := data[34:]

	switch env.Schema {
	case types.SchemaBitcoin:
		sub, err := parseBitcoinSign(rest)
		if err != nil {
			return SignEnvelope{}, err
		}
		env.Bitcoin = &sub

	case types.SchemaEthereumTransaction, types.SchemaEthereumERC20:
		sub, err := parseEthereumTransactionSign(rest, env.HasExtraPayloads)
		if err != nil {
			return SignEnvelope{}, err
		}
		env.EthTx = &sub

	case types.SchemaEthereumMessage:
		sub, err := parseEthereumMessageSign(rest, env.HasExtraPayloads)
		if err != nil {
			return SignEnvelope{}, err
		}
		env.EthMsg = &sub

	case types.SchemaExtraData:
		sub, err := parseExtraDataSign(rest)
		if err != nil {
			return SignEnvelope{}, err
		}
		env.Extra = &sub

	default:
		sub, err := parseGenericSign(rest)
		if err != nil {
			return SignEnvelope{}, err
		}
		env.Generic = &sub
	}

	return env, nil
}
