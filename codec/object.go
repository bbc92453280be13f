package codec

import (
	"github.com/moyoez/gcomserver-go/types"
)

// DescribeObject extracts the identifying header fields of a data object.
// Size and Digest are left for the caller, which owns the raw bytes.
func DescribeObject(elems types.ElementSet) types.ObjectInfo {
	var info types.ObjectInfo
	info.PatientName, _ = LookupString(elems, TagPatientName)
	info.StudyID, _ = LookupString(elems, TagStudyID)
	info.AcquisitionNumber, _ = Lookup(elems, TagAcquisitionNumber)
	info.ImageNumber, _ = Lookup(elems, TagImageNumber)
	info.Reconstruction, _ = Lookup(elems, TagReconstruction)
	info.ImageType, _ = Lookup(elems, TagImageType)
	return info
}

// ObjectElements builds the element set of a data object carrying pixels.
func ObjectElements(info types.ObjectInfo, pixels []byte) types.ElementSet {
	return types.ElementSet{
		{Tag: TagDataSetType, Value: U16(DataSetPresent)},
		{Tag: TagPatientName, Value: Str(info.PatientName)},
		{Tag: TagReconstruction, Value: U16(uint16(info.Reconstruction))},
		{Tag: TagImageType, Value: U16(uint16(info.ImageType))},
		{Tag: TagStudyID, Value: Str(info.StudyID)},
		{Tag: TagAcquisitionNumber, Value: U16(uint16(info.AcquisitionNumber))},
		{Tag: TagImageNumber, Value: U16(uint16(info.ImageNumber))},
		{Tag: TagPixelData, Value: pixels},
	}
}
