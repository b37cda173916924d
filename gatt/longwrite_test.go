package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leso-kn/attgatt"
)

func TestPrepareAndExecuteRejectsConcurrentLongWrite(t *testing.T) {
	c := &Client{longWrite: 1}
	err := c.prepareAndExecute(0x0003, []byte("value"), false)
	assert.ErrorIs(t, err, ble.ErrInLongWrite)
}
