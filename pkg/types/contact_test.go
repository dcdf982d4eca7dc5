package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContact_Clone(t *testing.T) {
	orig := &Contact{
		ID:       "alice",
		Data:     map[string]string{"tcp": "tcp://127.0.0.1:1"},
		Location: &Location{Host: "10.0.0.1", Port: 4001},
	}

	clone := orig.Clone()
	assert.Equal(t, orig, clone)

	clone.Data["udp"] = "udp://x"
	clone.Location.Port = 1
	assert.NotContains(t, orig.Data, "udp")
	assert.Equal(t, 4001, orig.Location.Port)

	var nilContact *Contact
	assert.Nil(t, nilContact.Clone())
}

func TestContact_String(t *testing.T) {
	c := &Contact{ID: "bob", Data: map[string]string{"udp": "u", "tcp": "t"}}
	assert.Equal(t, []string{"tcp", "udp"}, c.Schemes())
	assert.Equal(t, "bob[tcp udp]", c.String())

	c.Location = &Location{Host: "::1", Port: 80}
	assert.Equal(t, "bob@[::1]:80[tcp udp]", c.String())

	var nilContact *Contact
	assert.Equal(t, "<nil>", nilContact.String())
	assert.Nil(t, nilContact.Schemes())
}
