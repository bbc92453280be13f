package types

import "fmt"

// Tag identifies an element by its (group, element) pair.
type Tag struct {
	Group   uint16
	Element uint16
}

func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Element is a single tagged value as it appears on the wire.
type Element struct {
	Tag   Tag
	Value []byte
}

// ElementSet is the ordered list of elements carried by one message or data object.
type ElementSet []Element

// Find returns the first element with the given tag.
func (s ElementSet) Find(tag Tag) (Element, bool) {
	for _, e := range s {
		if e.Tag == tag {
			return e, true
		}
	}
	return Element{}, false
}

// Command is the decoded (control-code, sub-code) vocabulary of the protocol.
type Command int

const (
	CommandUnknown Command = iota
	CommandBeginGroup
	CommandReady
	CommandSend
	CommandEndGroup
	CommandCancel
)

func (c Command) String() string {
	switch c {
	case CommandBeginGroup:
		return "BEGIN-GROUP"
	case CommandReady:
		return "READY"
	case CommandSend:
		return "SEND"
	case CommandEndGroup:
		return "END-GROUP"
	case CommandCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// State is the per-connection protocol state.
type State int

const (
	StateWaitingForGroup State = iota
	StateWaitingForObject
	StateReadyForObject
	StateEndOfGroup
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateWaitingForGroup:
		return "WAITING_FOR_GROUP"
	case StateWaitingForObject:
		return "WAITING_FOR_OBJECT"
	case StateReadyForObject:
		return "READY_FOR_OBJECT"
	case StateEndOfGroup:
		return "END_OF_GROUP"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// GroupOpen reports whether a transfer tracker must exist in this state.
func (s State) GroupOpen() bool {
	return s == StateWaitingForObject || s == StateReadyForObject || s == StateEndOfGroup
}
