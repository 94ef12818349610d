package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	APIKey  string
	HTTP    *http.Client
	BaseURL string

	FromEmail string
	FromName  string
}

type SendRequest struct {
	ToEmail  string
	ToName   string
	Subject  string
	HTMLBody string

	// Attribution carried as custom args on the message so engagement events
	// can be resolved back to the release by the webhook.
	OrgID     string
	ReleaseID string
}

type mailSendBody struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To         []emailAddress    `json:"to"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) Send(ctx context.Context, req SendRequest) (int, []byte, error) {
	body := mailSendBody{
		Personalizations: []personalization{{
			To: []emailAddress{{Email: req.ToEmail, Name: req.ToName}},
			CustomArgs: map[string]string{
				"orgId":     req.OrgID,
				"releaseId": req.ReleaseID,
			},
		}},
		From:    emailAddress{Email: c.FromEmail, Name: c.FromName},
		Subject: req.Subject,
		Content: []mailContent{{Type: "text/html", Value: req.HTMLBody}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v3/mail/send", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	// mail send returns 202 on acceptance; treat any 2xx as success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var out errorResponse
		_ = json.Unmarshal(b, &out)
		if len(out.Errors) > 0 && out.Errors[0].Message != "" {
			return resp.StatusCode, b, errors.New(out.Errors[0].Message)
		}
		return resp.StatusCode, b, errors.New("mail send failed")
	}
	return resp.StatusCode, b, nil
}

// Retry decision for transient errors
func ShouldRetry(err error, httpStatus int) bool {
	if httpStatus == 429 || httpStatus == 408 {
		return true
	}
	if httpStatus >= 500 && httpStatus <= 599 {
		return true
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return true
		}
	}
	return false
}

func Backoff(attempt int) time.Duration {
	// 200ms, 600ms, 1400ms
	base := []time.Duration{200 * time.Millisecond, 600 * time.Millisecond, 1400 * time.Millisecond}
	if attempt <= 0 {
		return base[0]
	}
	if attempt >= len(base) {
		return base[len(base)-1]
	}
	return base[attempt]
}
