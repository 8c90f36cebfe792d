package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/agency-planner/configs"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/transfer"
	"golang.org/x/oauth2"
)

// PlatformService talks to the multi-platform scheduling API that fans a
// post out to the connected social accounts.
type PlatformService interface {
	UploadMedia(ctx context.Context, name, contentType string, payload []byte) (string, error)
	SchedulePost(ctx context.Context, req transfer.ScheduleRequest) (string, error)
	DeletePost(ctx context.Context, externalID string) error
	GetPostStatus(ctx context.Context, externalID string) (models.LateStatus, error)
}

type platformService struct {
	baseURL string
	client  *http.Client
}

func NewPlatformService(cfg config.Config) PlatformService {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Platform.APIKey, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), src)
	client.Timeout = cfg.Platform.Timeout
	return NewPlatformServiceWithClient(cfg.Platform.BaseURL, client)
}

func NewPlatformServiceWithClient(baseURL string, client *http.Client) PlatformService {
	return &platformService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *platformService) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr transfer.LateErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && (apiErr.Error != "" || apiErr.Message != "") {
			msg := apiErr.Error
			if msg == "" {
				msg = apiErr.Message
			}
			return fmt.Errorf("platform API %s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, msg)
		}
		return fmt.Errorf("platform API %s %s: unexpected status code %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

func (s *platformService) UploadMedia(ctx context.Context, name, contentType string, payload []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="files"; filename="%s"`, name)}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("error creating multipart body: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("error writing multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/media", &buf)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result transfer.LateMediaResponse
	if err := s.do(req, &result); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if len(result.Files) == 0 || result.Files[0].URL == "" {
		return "", errors.New("no media URL returned from platform")
	}
	return result.Files[0].URL, nil
}

func mediaType(ref string) string {
	lower := strings.ToLower(ref)
	for _, ext := range []string{".mp4", ".mov", ".webm"} {
		if strings.HasSuffix(lower, ext) {
			return "video"
		}
	}
	return "image"
}

func (s *platformService) SchedulePost(ctx context.Context, r transfer.ScheduleRequest) (string, error) {
	payload := transfer.LateCreatePostRequest{
		Content:      r.Caption,
		MediaItems:   []transfer.LateMediaItem{{Type: mediaType(r.MediaRef), URL: r.MediaRef}},
		ScheduledFor: r.ScheduledAt.Format("2006-01-02T15:04:05"),
		Timezone:     r.ScheduledAt.Location().String(),
		Platforms:    []transfer.LatePlatformTarget{{Platform: r.Platform, AccountID: r.ExternalAccountID}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/posts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result transfer.LatePostResponse
	if err := s.do(req, &result); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if result.Post.ID == "" {
		return "", errors.New("no post ID returned from platform")
	}
	return result.Post.ID, nil
}

func (s *platformService) DeletePost(ctx context.Context, externalID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/v1/posts/"+url.PathEscape(externalID), nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if err := s.do(req, nil); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *platformService) GetPostStatus(ctx context.Context, externalID string) (models.LateStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/posts/"+url.PathEscape(externalID), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	var result transfer.LatePostResponse
	if err := s.do(req, &result); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	switch result.Post.Status {
	case "published":
		return models.LateStatusPublished, nil
	case "failed", "partial":
		return models.LateStatusFailed, nil
	default:
		return models.LateStatusScheduled, nil
	}
}
