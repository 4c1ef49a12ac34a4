package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const linkedInAPI = "https://api.linkedin.com"

// LinkedInAuth runs the OAuth code flow that yields a token able to post on
// the member's behalf.
type LinkedInAuth struct {
	config  *oauth2.Config
	apiBase string
}

type LinkedInCredentials struct {
	AccessToken string `json:"accessToken"`
	PersonURN   string `json:"personUrn"`
	ExpiresIn   int64  `json:"expiresIn"`
}

func NewLinkedInAuth(clientID, clientSecret, redirectURL string) *LinkedInAuth {
	return &LinkedInAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
		apiBase: linkedInAPI,
	}
}

func (l *LinkedInAuth) AuthCodeURL(state string) string {
	return l.config.AuthCodeURL(state)
}

// ErrLinkedInProfile means the token exchange succeeded but the member URN
// could not be resolved. Exchange still returns the credentials.
var ErrLinkedInProfile = errors.New("linkedin profile lookup failed")

// Exchange trades code for an access token and resolves the member URN.
func (l *LinkedInAuth) Exchange(ctx context.Context, code string) (*LinkedInCredentials, error) {
	token, err := l.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("linkedin token exchange: %w", err)
	}
	creds := &LinkedInCredentials{AccessToken: token.AccessToken}
	if v, ok := token.Extra("expires_in").(float64); ok {
		creds.ExpiresIn = int64(v)
	}

	client := l.config.Client(ctx, token)
	var profile struct {
		Sub string `json:"sub"`
		ID  string `json:"id"`
	}
	if err := getJSON(ctx, client, l.apiBase+"/v2/userinfo", &profile); err != nil {
		if err := getJSON(ctx, client, l.apiBase+"/v2/me", &profile); err != nil {
			return creds, fmt.Errorf("%w: %w", ErrLinkedInProfile, err)
		}
	}
	id := profile.Sub
	if id == "" {
		id = profile.ID
	}
	creds.PersonURN = "urn:li:person:" + id
	return creds, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// LinkedInPoster shares articles as the configured author.
type LinkedInPoster struct {
	client  *http.Client
	apiBase string
	author  string
}

func NewLinkedInPoster(ctx context.Context, accessToken, authorURN string) *LinkedInPoster {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return &LinkedInPoster{client: oauth2.NewClient(ctx, ts), apiBase: linkedInAPI, author: authorURN}
}

type shareContent struct {
	ShareCommentary    struct{ Text string `json:"text"` } `json:"shareCommentary"`
	ShareMediaCategory string                             `json:"shareMediaCategory"`
	Media              []shareMedia                       `json:"media,omitempty"`
}

type shareMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

// Share publishes text with an article link and returns the post URN.
func (p *LinkedInPoster) Share(ctx context.Context, text, articleURL string) (string, error) {
	sc := shareContent{ShareMediaCategory: "NONE"}
	sc.ShareCommentary.Text = text
	if articleURL != "" {
		sc.ShareMediaCategory = "ARTICLE"
		sc.Media = []shareMedia{{Status: "READY", OriginalURL: articleURL}}
	}
	body, err := json.Marshal(ugcPost{
		Author:          p.author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]shareContent{"com.linkedin.ugc.ShareContent": sc},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkedin share: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("linkedin share: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if id := resp.Header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	var out struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out.ID, nil
}

// ShareText is the LinkedIn commentary for a freshly published post.
func ShareText(p Post, url string) string {
	var tags []string
	for i, t := range p.Tags {
		if i == 3 {
			break
		}
		tags = append(tags, "#"+strings.Join(strings.Fields(t), ""))
	}
	tags = append(tags, "#PhysicalTherapy", "#PTClinic", "#HealthcareBusiness")
	return fmt.Sprintf("New article: %s\n\n%s\n\nRead the full article: %s\n\n%s", p.Title, p.Description, url, strings.Join(tags, " "))
}
