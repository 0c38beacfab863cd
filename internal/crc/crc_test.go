package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCcittSingle(t *testing.T) {
	crc := CRC16(0)
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)
}

func TestCcittOfEmpty(t *testing.T) {
	assert.EqualValues(t, 0, Of(nil))
}

func TestCcittBytesMatchesSingle(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xFF, 0x00, 0xAB}
	var viaSingle CRC16
	for _, b := range data {
		viaSingle.Single(b)
	}
	assert.EqualValues(t, viaSingle, Of(data))
}
