package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackRoundTrip(t *testing.T) {
	data := Callback("aim", "a1b2c3d4", "hit", "7")
	assert.Equal(t, "aim:a1b2c3d4:hit:7", data)
	assert.Equal(t, []string{"aim", "a1b2c3d4", "hit", "7"}, ParseCallback(data))
	assert.Equal(t, []string{"rank", "typing", "2"}, ParseCallback("\frank:typing:2"))
}

func TestGrid(t *testing.T) {
	buttons := make([]Button, 7)
	kb := Grid(buttons, 3)
	assert.Len(t, kb, 3)
	assert.Len(t, kb[2], 1)

	assert.Len(t, Grid(buttons, 0), 1)
	assert.Empty(t, Grid(nil, 5))
}
