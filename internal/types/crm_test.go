package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplyCategoryValid(t *testing.T) {
	for _, c := range []ReplyCategory{ReplyInterested, ReplyNotInterested, ReplyNeedsInfo, ReplyOutOfOffice, ReplySpam} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, ReplyCategory("").Valid())
	assert.False(t, ReplyCategory("intrested").Valid())
}

func TestReplyCategorySubstate(t *testing.T) {
	status, ok := ReplyInterested.Substate()
	assert.True(t, ok)
	assert.Equal(t, StatusInterested, status)

	_, ok = ReplyOutOfOffice.Substate()
	assert.False(t, ok)

	_, ok = ReplySpam.Substate()
	assert.False(t, ok)
}
