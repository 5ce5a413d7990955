package utils

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lms/config"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	zoomAuthURL = "https://zoom.us"
	zoomAPIURL  = "https://api.zoom.us/v2"
)

// ZoomMeeting is the part of a Zoom meeting the LMS stores.
type ZoomMeeting struct {
	ID       json.Number `json:"id"`
	Topic    string      `json:"topic"`
	JoinURL  string      `json:"join_url"`
	Password string      `json:"password"`
}

// ZoomClient talks to the Zoom API with server-to-server OAuth credentials.
type ZoomClient struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	AuthURL      string
	APIURL       string

	http *resty.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewZoomClient(accountID, clientID, clientSecret string) *ZoomClient {
	return &ZoomClient{
		AccountID:    accountID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      zoomAuthURL,
		APIURL:       zoomAPIURL,
		http:         resty.New().SetTimeout(10 * time.Second),
	}
}

// NewZoomClientFromConfig returns nil when Zoom credentials are not configured.
func NewZoomClientFromConfig(cfg *config.Config) *ZoomClient {
	if cfg.ZoomAccountID == "" || cfg.ZoomClientID == "" || cfg.ZoomClientSecret == "" {
		return nil
	}
	return NewZoomClient(cfg.ZoomAccountID, cfg.ZoomClientID, cfg.ZoomClientSecret)
}

func (z *ZoomClient) accessToken() (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.token != "" && time.Now().Before(z.expiresAt) {
		return z.token, nil
	}

	var auth struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := z.http.R().
		SetBasicAuth(z.ClientID, z.ClientSecret).
		SetQueryParams(map[string]string{
			"grant_type": "account_credentials",
			"account_id": z.AccountID,
		}).
		SetResult(&auth).
		Post(z.AuthURL + "/oauth/token")
	if err != nil {
		return "", errors.Wrap(err, "zoom auth")
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("zoom auth failed: %s", resp.String())
	}

	z.token = auth.AccessToken
	// Refresh a minute early.
	z.expiresAt = time.Now().Add(time.Duration(auth.ExpiresIn)*time.Second - time.Minute)
	return z.token, nil
}

// Meeting fetches a meeting by id.
func (z *ZoomClient) Meeting(meetingID string) (ZoomMeeting, error) {
	var meeting ZoomMeeting

	token, err := z.accessToken()
	if err != nil {
		return meeting, err
	}

	resp, err := z.http.R().
		SetAuthToken(token).
		SetPathParam("meetingId", meetingID).
		SetResult(&meeting).
		Get(z.APIURL + "/meetings/{meetingId}")
	if err != nil {
		return meeting, errors.Wrap(err, "zoom meeting")
	}
	if resp.StatusCode() != 200 {
		return meeting, fmt.Errorf("zoom meeting %s: %s", meetingID, resp.String())
	}
	return meeting, nil
}
