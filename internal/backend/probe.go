package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const (
	officialLikeFeature = "official-like"
	probeTimeout        = 5 * time.Second
	maxVersionBody      = 1 << 20
)

// Prober 查询后端 /api/version，判断私服是否声明了 official-like 特性。
type Prober struct {
	client *http.Client
	logger *logrus.Logger
}

// NewProber 复用共享的上游 http.Client。
func NewProber(client *http.Client, logger *logrus.Logger) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{client: client, logger: logger}
}

type versionPayload struct {
	ServerData *struct {
		Features []struct {
			Name string `json:"name"`
		} `json:"features"`
	} `json:"serverData"`
}

// OfficialLike 任何错误（网络、状态码、JSON）都视为 false。
func (p *Prober) OfficialLike(ctx context.Context, target *url.URL, prefix string) bool {
	if p == nil || target == nil {
		return false
	}
	versionURL := TrimTrailingSlashes(target.String()) + prefix + "/api/version"

	ok, err := p.fetch(ctx, versionURL)
	if err != nil && p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"action":  "version_probe",
			"url":     versionURL,
			"warning": err.Error(),
		}).Debug("version_probe_failed")
	}
	return ok
}

func (p *Prober) fetch(ctx context.Context, versionURL string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVersionBody))
	if err != nil {
		return false, err
	}
	var payload versionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, err
	}
	if payload.ServerData == nil {
		return false, nil
	}
	for _, feature := range payload.ServerData.Features {
		if strings.EqualFold(feature.Name, officialLikeFeature) {
			return true, nil
		}
	}
	return false, nil
}
