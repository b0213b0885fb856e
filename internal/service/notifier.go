package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

const approvalMessageFormat = `*New SQL Query Approval Request*

*User:* %s
*Date:* %s
*Database:* %s
*Machine Name:* %s
*Risk type:* %s

*Query:*
` + "```%s```" + `

Please approve or reject the execution of this query.`

// SlackNotifier posts approval requests to a Slack incoming webhook.
// Best effort only: every failure path returns false and logs.
type SlackNotifier struct {
	client     *resty.Client
	webhookURL string
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	client := resty.New().
		SetTimeout(8 * time.Second).
		SetHeader("Content-Type", "application/json; charset=utf-8")
	return &SlackNotifier{client: client, webhookURL: webhookURL}
}

var _ ApprovalNotifier = (*SlackNotifier)(nil)

func (n *SlackNotifier) SendApprovalRequest(ctx context.Context, req ApprovalRequest) bool {
	if n.webhookURL == "" {
		logger.Info.Println("notifier: SLACK_WEBHOOK_URL not set, message not sent")
		return false
	}

	text := fmt.Sprintf(approvalMessageFormat,
		req.Username, req.RequestTime, req.Database, req.Server, req.RiskType, req.Query)

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		Post(n.webhookURL)
	if err != nil {
		logger.Error.Printf("notifier: slack request failed: %v", err)
		return false
	}
	if resp.IsError() {
		logger.Error.Printf("notifier: slack webhook error: %d - %s", resp.StatusCode(), resp.String())
		return false
	}
	return true
}
