package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const githubAPI = "https://api.github.com"

type GitHubConfig struct {
	Token  string
	Repo   string
	Branch string
	Folder string
	// CDNBaseURL fronts the repository; without it raw.githubusercontent
	// URLs are returned.
	CDNBaseURL string
	// APIBaseURL overrides the GitHub API host.
	APIBaseURL string
}

// GitHub commits each image to a repository through the contents API and
// returns a URL served from the repository.
type GitHub struct {
	http   *resty.Client
	cfg    GitHubConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewGitHub(cfg GitHubConfig, logger *zap.Logger) (*GitHub, error) {
	if strings.TrimSpace(cfg.Token) == "" || strings.TrimSpace(cfg.Repo) == "" {
		return nil, errors.New("github storage needs GITHUB_TOKEN and GITHUB_REPO")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = githubAPI
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("Authorization", "token "+strings.TrimSpace(cfg.Token))
	return &GitHub{http: client, cfg: cfg, logger: logger, now: time.Now}, nil
}

type githubPutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

type githubError struct {
	Message string `json:"message"`
}

func (g *GitHub) Put(ctx context.Context, roomID string, data []byte, contentType string) (string, error) {
	name := g.now().UTC().Format("20060102_150405") + "_" + newKey(roomID, contentType)
	target := path.Join(strings.Trim(g.cfg.Folder, "/"), name)

	var apiErr githubError
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(githubPutRequest{
			Message: "Upload image " + name,
			Content: base64.StdEncoding.EncodeToString(data),
			Branch:  g.cfg.Branch,
		}).
		SetError(&apiErr).
		Put("/repos/" + g.cfg.Repo + "/contents/" + target)
	if err != nil {
		return "", fmt.Errorf("reach github: %w", err)
	}
	if resp.IsError() {
		g.logger.Warn("github upload rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", apiErr.Message),
			zap.String("path", target),
		)
		return "", fmt.Errorf("github upload failed (%d): %s", resp.StatusCode(), apiErr.Message)
	}
	return g.publicURL(target), nil
}

func (g *GitHub) publicURL(target string) string {
	if base := strings.TrimRight(g.cfg.CDNBaseURL, "/"); base != "" {
		return base + "/" + target
	}
	return "https://raw.githubusercontent.com/" + g.cfg.Repo + "/" + g.cfg.Branch + "/" + target
}
