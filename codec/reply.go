package codec

import (
	"fmt"

	"github.com/moyoez/gcomserver-go/types"
)

func reply(req types.ElementSet, acr uint16) types.ElementSet {
	out := types.ElementSet{
		{Tag: TagCommand, Value: U16(ResponseCode(acr))},
		{Tag: TagDataSetType, Value: U16(DataSetAbsent)},
		{Tag: TagStatus, Value: U16(StatusSuccess)},
	}
	if id, ok := Lookup(req, TagMessageID); ok {
		out = append(out, types.Element{Tag: TagRespondingTo, Value: U16(uint16(id))})
	}
	return out
}

func spiReply(req types.ElementSet, spi uint16) types.ElementSet {
	return append(reply(req, ACRSendRequest),
		types.Element{Tag: TagSPICommand, Value: U16(ResponseCode(spi))})
}

// BeginGroupReply acknowledges a BEGIN-GROUP and echoes the group size.
func BeginGroupReply(req types.ElementSet, count int) types.ElementSet {
	return append(spiReply(req, SPIGroupBeginRequest),
		types.Element{Tag: TagNumberOfObjects, Value: U32(uint32(count))})
}

func ReadyReply(req types.ElementSet) types.ElementSet {
	return spiReply(req, SPIReadyRequest)
}

func SendReply(req types.ElementSet) types.ElementSet {
	return spiReply(req, SPISendRequest)
}

func EndGroupReply(req types.ElementSet) types.ElementSet {
	return spiReply(req, SPIGroupEndRequest)
}

func CancelReply(req types.ElementSet) types.ElementSet {
	return reply(req, ACRCancelRequest)
}

// Reply dispatches to the builder for cmd.
func Reply(cmd types.Command, req types.ElementSet, count int) (types.ElementSet, error) {
	switch cmd {
	case types.CommandBeginGroup:
		return BeginGroupReply(req, count), nil
	case types.CommandReady:
		return ReadyReply(req), nil
	case types.CommandSend:
		return SendReply(req), nil
	case types.CommandEndGroup:
		return EndGroupReply(req), nil
	case types.CommandCancel:
		return CancelReply(req), nil
	}
	return nil, fmt.Errorf("%w: no reply for %s", types.ErrProtocol, cmd)
}

// IsSuccessReply reports whether elems is a successful response to cmd.
func IsSuccessReply(cmd types.Command, elems types.ElementSet) bool {
	status, ok := Lookup(elems, TagStatus)
	if !ok || uint16(status) != StatusSuccess {
		return false
	}
	acr, _ := Lookup(elems, TagCommand)
	if cmd == types.CommandCancel {
		return uint16(acr) == ResponseCode(ACRCancelRequest)
	}
	if uint16(acr) != ResponseCode(ACRSendRequest) {
		return false
	}
	want, ok := spiCode(cmd)
	if !ok {
		return false
	}
	spi, _ := Lookup(elems, TagSPICommand)
	return uint16(spi) == ResponseCode(want)
}
