package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	tbtest "git.home.luguber.info/inful/texbuilder/internal/testing"
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	flushed    bool
	closed     bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.publishErr
}

func (c *fakeConn) FlushTimeout(time.Duration) error {
	c.flushed = true
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestPublishSendsReport(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn, "texbuilder.builds")
	rep := report.New("b-1", "build", "/src", []string{"pdf"})
	rep.Finish(nil)

	require.NoError(t, p.Publish(rep))
	assert.Equal(t, "texbuilder.builds", conn.subject)
	assert.True(t, conn.flushed)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(conn.data, &decoded))
	assert.Equal(t, "b-1", decoded["build_id"])
	assert.Equal(t, "success", decoded["outcome"])

	p.Close()
	assert.True(t, conn.closed)
}

func TestPublishErrorIsNotifyError(t *testing.T) {
	p := New(&fakeConn{publishErr: errors.New("connection closed")}, "s")
	err := p.Publish(report.New("b", "build", "/src", nil))
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotify))
}

func TestDisabledNotification(t *testing.T) {
	p, err := Connect(tbtest.NewConfigBuilder(t).Build())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.Publish(report.New("b", "build", "/src", nil)))
	p.Close()
}
