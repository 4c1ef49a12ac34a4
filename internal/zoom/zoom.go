// Package zoom creates scheduled meetings through the Zoom REST API.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://api.zoom.us/v2"

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient authenticates every request with a bearer token.
func NewClient(ctx context.Context, accessToken string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &Client{baseURL: DefaultBaseURL, http: oauth2.NewClient(ctx, ts)}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type Meeting struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

type settings struct {
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host"`
	MuteUponEntry    bool   `json:"mute_upon_entry"`
	ApprovalType     int    `json:"approval_type"`
	Audio            string `json:"audio"`
	AutoRecording    string `json:"auto_recording"`
}

type createRequest struct {
	Topic     string   `json:"topic"`
	Type      int      `json:"type"`
	StartTime string   `json:"start_time"`
	Duration  int      `json:"duration"`
	Timezone  string   `json:"timezone"`
	Settings  settings `json:"settings"`
}

const scheduledMeeting = 2

func (c *Client) CreateMeeting(ctx context.Context, topic string, start time.Time, duration time.Duration) (*Meeting, error) {
	body, err := json.Marshal(createRequest{
		Topic:     topic,
		Type:      scheduledMeeting,
		StartTime: start.Format("2006-01-02T15:04:05"),
		Duration:  int(duration / time.Minute),
		Timezone:  start.Location().String(),
		Settings: settings{
			HostVideo:        true,
			ParticipantVideo: true,
			MuteUponEntry:    true,
			Audio:            "both",
			AutoRecording:    "cloud",
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/me/meetings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom create meeting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("zoom create meeting: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var m Meeting
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode zoom meeting: %w", err)
	}
	if m.JoinURL == "" {
		return nil, fmt.Errorf("zoom create meeting: response has no join_url")
	}
	return &m, nil
}
