package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jihoo509/third-site/internal/leads"
	"github.com/jihoo509/third-site/pkg/logging"
)

// LeadNotifier emails operators when a lead is stored. The message carries
// the masked title only, never the raw payload.
type LeadNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

// NewLeadNotifier returns nil when there is no sender or recipient.
func NewLeadNotifier(sender EmailSender, to string, logger *logging.Logger) *LeadNotifier {
	to = strings.TrimSpace(to)
	if sender == nil || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{sender: sender, to: to, logger: logger}
}

// NotifyLead implements leads.Notifier.
func (n *LeadNotifier) NotifyLead(ctx context.Context, notice leads.Notice) error {
	if n == nil || n.sender == nil {
		return errors.New("notify: lead notifier not configured")
	}
	msg := EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("[신규 상담신청 #%d] %s", notice.Number, notice.Title),
		Body:    leadBody(notice),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead %d: %w", notice.Number, err)
	}
	n.logger.Debug("lead notification sent", "number", notice.Number)
	return nil
}

func leadBody(notice leads.Notice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "새 상담신청이 접수되었습니다.\n\n")
	fmt.Fprintf(&b, "번호: #%d\n", notice.Number)
	fmt.Fprintf(&b, "유형: %s\n", leads.RequestTypeLabel(string(notice.Kind)))
	fmt.Fprintf(&b, "사이트: %s\n", notice.Site)
	fmt.Fprintf(&b, "요약: %s\n", notice.Title)
	return b.String()
}

var _ leads.Notifier = (*LeadNotifier)(nil)
