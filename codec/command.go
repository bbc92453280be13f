package codec

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/moyoez/gcomserver-go/types"
)

// MaxGroupSize bounds the object count a BEGIN-GROUP may announce.
const MaxGroupSize = 4096

// Lookup returns the integer value of a 2 or 4 byte element.
func Lookup(elems types.ElementSet, tag types.Tag) (int, bool) {
	e, ok := elems.Find(tag)
	if !ok {
		return 0, false
	}
	switch len(e.Value) {
	case 2:
		return int(binary.LittleEndian.Uint16(e.Value)), true
	case 4:
		return int(binary.LittleEndian.Uint32(e.Value)), true
	default:
		return 0, false
	}
}

// LookupString returns a text element with its padding trimmed.
func LookupString(elems types.ElementSet, tag types.Tag) (string, bool) {
	e, ok := elems.Find(tag)
	if !ok {
		return "", false
	}
	return strings.TrimRight(string(e.Value), " \x00"), true
}

// Classify maps the ACR command and SPI sub-code of a message onto the
// protocol vocabulary. Missing codes yield CommandUnknown.
func Classify(elems types.ElementSet) types.Command {
	acr, ok := Lookup(elems, TagCommand)
	if !ok {
		return types.CommandUnknown
	}
	switch uint16(acr) {
	case ACRCancelRequest:
		return types.CommandCancel
	case ACRSendRequest:
	default:
		return types.CommandUnknown
	}

	spi, ok := Lookup(elems, TagSPICommand)
	if !ok {
		return types.CommandUnknown
	}
	switch uint16(spi) {
	case SPIGroupBeginRequest:
		return types.CommandBeginGroup
	case SPIReadyRequest:
		return types.CommandReady
	case SPISendRequest:
		return types.CommandSend
	case SPIGroupEndRequest:
		return types.CommandEndGroup
	default:
		return types.CommandUnknown
	}
}

// GroupSize reads the object count announced by a BEGIN-GROUP request.
// Absent, zero or oversized counts are protocol errors.
func GroupSize(elems types.ElementSet) (int, error) {
	n, ok := Lookup(elems, TagNumberOfObjects)
	if !ok {
		return 0, fmt.Errorf("%w: BEGIN-GROUP without %s", types.ErrProtocol, TagNumberOfObjects)
	}
	if n < 1 || n > MaxGroupSize {
		return 0, fmt.Errorf("%w: group size %d outside 1..%d", types.ErrProtocol, n, MaxGroupSize)
	}
	return n, nil
}

func spiCode(cmd types.Command) (uint16, bool) {
	switch cmd {
	case types.CommandBeginGroup:
		return SPIGroupBeginRequest, true
	case types.CommandReady:
		return SPIReadyRequest, true
	case types.CommandSend:
		return SPISendRequest, true
	case types.CommandEndGroup:
		return SPIGroupEndRequest, true
	}
	return 0, false
}

// Request builds the element set a device sends for cmd. count is only used
// by BEGIN-GROUP.
func Request(cmd types.Command, messageID uint16, count int) (types.ElementSet, error) {
	elems := types.ElementSet{
		{Tag: TagMessageID, Value: U16(messageID)},
		{Tag: TagDataSetType, Value: U16(DataSetAbsent)},
	}
	if cmd == types.CommandCancel {
		return append(elems, types.Element{Tag: TagCommand, Value: U16(ACRCancelRequest)}), nil
	}
	spi, ok := spiCode(cmd)
	if !ok {
		return nil, fmt.Errorf("no request encoding for %s", cmd)
	}
	elems = append(elems,
		types.Element{Tag: TagCommand, Value: U16(ACRSendRequest)},
		types.Element{Tag: TagSPICommand, Value: U16(spi)},
	)
	if cmd == types.CommandBeginGroup {
		elems = append(elems, types.Element{Tag: TagNumberOfObjects, Value: U32(uint32(count))})
	}
	return elems, nil
}
