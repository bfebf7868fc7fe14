package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Version is the firmware version.
type Version struct {
	Major uint8
	Minor uint8
	Build uint32
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Build)
}

// SerialSize is the size of the serial number.
const SerialSize = 16

// Serial is the device serial number.
type Serial [SerialSize]byte

// SerialFrom creates a Serial from a string, truncated if too long.
func SerialFrom(s string) (serial Serial) {
	copy(serial[:], s)
	return
}

// String implements fmt.Stringer.
func (s Serial) String() string {
	return string(bytes.TrimRight(s[:], "\x00"))
}

// Statistics is the runtime statistics of the device.
type Statistics struct {
	VideoCaptureDurationUs uint32
	VideoCNNDurationUs     uint32
	VideoDurationUs        uint32
	AudioCNNDurationUs     uint32
	AudioDurationUs        uint32
	CommunicationUs        uint32
	LCDFps                 float32
	VideoFps               float32
	BatterySOC             uint8
	Uptime                 uint32
}

// LabelSize is the maximum size of a classification label.
const LabelSize = 16

// Classification is the latest result of a classifier.
type Classification struct {
	Probability float32
	Label       [LabelSize]byte
	Class       uint8
}

// NewClassification creates a Classification.
func NewClassification(class uint8, label string, probability float32) Classification {
	c := Classification{Probability: probability, Class: class}
	copy(c.Label[:], label)
	return c
}

// LabelString returns the label as string.
func (c Classification) LabelString() string {
	return string(bytes.TrimRight(c.Label[:], "\x00"))
}

// String implements fmt.Stringer.
func (c Classification) String() string {
	return fmt.Sprintf("%s(%d) %.2f", c.LabelString(), c.Class, c.Probability)
}

// Encode encodes a fixed-size status struct as packed little-endian bytes.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes the payload encoded by Encode into v.
func Decode(payload []byte, v interface{}) error {
	if size := binary.Size(v); size != len(payload) {
		return fmt.Errorf("payload size %d mismatch, expect %d", len(payload), size)
	}
	return binary.Read(bytes.NewReader(payload), binary.LittleEndian, v)
}
