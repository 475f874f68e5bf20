package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

type errStub string

func TestBridge(t *testing.T) {
	attr := log.Bridge("tg")
	assertAttrEqual(t, attr, "bridge", "tg")
}

func TestPath(t *testing.T) {
	attr := log.Path(api.Path("c.start"))
	assertAttrEqual(t, attr, "path", "c.start")
}

func TestChatID(t *testing.T) {
	attr := log.ChatID("chat-42")
	assertAttrEqual(t, attr, "chat_id", "chat-42")
}

func TestSenderID(t *testing.T) {
	attr := log.SenderID("user-42")
	assertAttrEqual(t, attr, "sender_id", "user-42")
}

func TestUID(t *testing.T) {
	attr := log.UID("uid-1")
	assertAttrEqual(t, attr, "uid", "uid-1")
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func TestErrorString(t *testing.T) {
	attr := log.ErrorString("badness")
	assertAttrEqual(t, attr, "error", "badness")
}

func (e errStub) Error() string { return string(e) }

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
