package codec

import "github.com/moyoez/gcomserver-go/types"

// Command group (0000) elements.
var (
	TagGroupLength     = types.Tag{Group: 0x0000, Element: 0x0000}
	TagLengthToEnd     = types.Tag{Group: 0x0000, Element: 0x0001}
	TagCommand         = types.Tag{Group: 0x0000, Element: 0x0100}
	TagMessageID       = types.Tag{Group: 0x0000, Element: 0x0110}
	TagRespondingTo    = types.Tag{Group: 0x0000, Element: 0x0120}
	TagDataSetType     = types.Tag{Group: 0x0000, Element: 0x0800}
	TagStatus          = types.Tag{Group: 0x0000, Element: 0x0900}
	TagSPICommand      = types.Tag{Group: 0x0009, Element: 0x0100}
	TagNumberOfObjects = types.Tag{Group: 0x0009, Element: 0x0120}
)

// Data object header elements used to describe a staged object.
var (
	TagPatientName       = types.Tag{Group: 0x0010, Element: 0x0010}
	TagStudyID           = types.Tag{Group: 0x0020, Element: 0x0010}
	TagAcquisitionNumber = types.Tag{Group: 0x0020, Element: 0x0012}
	TagImageNumber       = types.Tag{Group: 0x0020, Element: 0x0013}
	TagReconstruction    = types.Tag{Group: 0x0019, Element: 0x1020}
	TagImageType         = types.Tag{Group: 0x0019, Element: 0x1022}
	TagPixelData         = types.Tag{Group: 0x7fe0, Element: 0x0010}
)

// ACR-NEMA command codes. Responses set the high bit of the request code.
const (
	ACRSendRequest   uint16 = 0x0001
	ACRCancelRequest uint16 = 0x0fff
	responseBit      uint16 = 0x8000
)

// SPI sub-codes carried in (0009,0100) alongside ACRSendRequest.
const (
	SPISendRequest       uint16 = 0x0001
	SPIGroupBeginRequest uint16 = 0x0041
	SPIGroupEndRequest   uint16 = 0x0042
	SPIReadyRequest      uint16 = 0x0043
)

const (
	DataSetAbsent  uint16 = 0x0101
	DataSetPresent uint16 = 0x0001
	StatusSuccess  uint16 = 0x0000
)

// ResponseCode returns the response code paired with a request code.
func ResponseCode(request uint16) uint16 {
	return request | responseBit
}
