package chainutil

import (
	"github.com/mowind/dapputil-go/internal/contract"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
)

// ParseLog decodes logs against the events of a. The result has one entry
// per log, in order. A log that matches no event carries
// contract.ErrNoMatchingEvent, a malformed one a DECODE_FAILED error; neither
// stops the rest of the batch. contract.Decoded gives the nil-on-failure view.
func ParseLog(a *abi.ABI, logs []*ethgo.Log) []contract.LogResult {
	return contract.NewLogDecoder(a).Decode(logs)
}
