package middleware

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeContext реализует только методы, которые вызывают middleware
type fakeContext struct {
	tele.Context
	update    tele.Update
	responded int
}

func (c *fakeContext) Update() tele.Update { return c.update }

func (c *fakeContext) Callback() *tele.Callback { return c.update.Callback }

func (c *fakeContext) Message() *tele.Message { return c.update.Message }

func (c *fakeContext) Respond(...*tele.CallbackResponse) error {
	c.responded++
	return nil
}

func TestRecover(t *testing.T) {
	var caught error
	h := Recover(func(err error, _ tele.Context) { caught = err })(func(tele.Context) error {
		panic("boom")
	})

	err := h(&fakeContext{})
	require.EqualError(t, err, "boom")
	assert.Equal(t, err, caught)

	ok := Recover()(func(tele.Context) error { return nil })
	assert.NoError(t, ok(&fakeContext{}))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := &fakeContext{update: tele.Update{ID: 77, Message: &tele.Message{Text: "/start"}}}

	called := false
	err := Logger(log.New(&buf, "", 0))(func(tele.Context) error {
		called = true
		return nil
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, buf.String(), `"update_id": 77`)
}

func TestAutoRespond(t *testing.T) {
	handlerErr := errors.New("handler failed")

	cb := &fakeContext{update: tele.Update{Callback: &tele.Callback{Data: "answer_1_0"}}}
	err := AutoRespond()(func(tele.Context) error { return handlerErr })(cb)
	assert.ErrorIs(t, err, handlerErr)
	assert.Equal(t, 1, cb.responded)

	msg := &fakeContext{update: tele.Update{Message: &tele.Message{Text: "hi"}}}
	require.NoError(t, AutoRespond()(func(tele.Context) error { return nil })(msg))
	assert.Equal(t, 0, msg.responded)
}

func TestDescribeAction(t *testing.T) {
	assert.Equal(t, "Callback: start_test", DescribeAction(&fakeContext{update: tele.Update{Callback: &tele.Callback{Data: "start_test"}}}))
	assert.Equal(t, "Message: /start", DescribeAction(&fakeContext{update: tele.Update{Message: &tele.Message{Text: "/start"}}}))
	assert.Equal(t, "Unknown action", DescribeAction(&fakeContext{}))
}
