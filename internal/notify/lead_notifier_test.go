package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jihoo509/third-site/internal/leads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	msgs []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestNewLeadNotifierRequiresSenderAndRecipient(t *testing.T) {
	assert.Nil(t, NewLeadNotifier(nil, "ops@example.com", nil))
	assert.Nil(t, NewLeadNotifier(&recordingSender{}, " ", nil))
	assert.NotNil(t, NewLeadNotifier(&recordingSender{}, "ops@example.com", nil))
}

func TestNotifyLeadSendsMaskedTitle(t *testing.T) {
	sender := &recordingSender{}
	n := NewLeadNotifier(sender, "ops@example.com", nil)

	err := n.NotifyLead(context.Background(), leads.Notice{
		Number: 12,
		Title:  "[전화] 홍길동 / 남 / 900101-*******",
		Kind:   leads.KindPhone,
		Site:   "teeth",
	})
	require.NoError(t, err)
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, "[신규 상담신청 #12] [전화] 홍길동 / 남 / 900101-*******", msg.Subject)
	assert.Contains(t, msg.Body, "전화상담")
	assert.Contains(t, msg.Body, "teeth")
	assert.True(t, strings.Contains(msg.Body, "900101-*******"))
}

func TestNotifyLeadWrapsSenderError(t *testing.T) {
	boom := errors.New("boom")
	n := NewLeadNotifier(&recordingSender{err: boom}, "ops@example.com", nil)
	err := n.NotifyLead(context.Background(), leads.Notice{Number: 1})
	assert.ErrorIs(t, err, boom)
}

func TestNilLeadNotifier(t *testing.T) {
	var n *LeadNotifier
	assert.Error(t, n.NotifyLead(context.Background(), leads.Notice{}))
}
