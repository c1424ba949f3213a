package redisx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_AppliesTimeouts(t *testing.T) {
	c := New("localhost:6379")
	defer c.Close()

	assert.Equal(t, 2*time.Second, c.Options().ReadTimeout)
	assert.Equal(t, 2*time.Second, c.Options().WriteTimeout)
}
