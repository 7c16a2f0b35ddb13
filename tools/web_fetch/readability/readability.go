package readability

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	goreadability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/learnpath/internal/helpers"
	"github.com/mohammad-safakhou/learnpath/tools/web_fetch/models"
)

var ErrNoText = errors.New("page has no readable text")

// Fetch downloads pages over plain HTTP.
type Fetch struct {
	Client       *http.Client
	UserAgent    string
	MaxBodyBytes int64
}

func NewFetch(timeout time.Duration, userAgent string, maxBodyBytes int64) *Fetch {
	return &Fetch{Client: &http.Client{Timeout: timeout}, UserAgent: userAgent, MaxBodyBytes: maxBodyBytes}
}

func (f *Fetch) Exec(ctx context.Context, rawURL string) (models.Page, error) {
	if !helpers.IsWebURL(rawURL) {
		return models.Page{}, errors.New("invalid url")
	}
	t0 := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Page{URL: rawURL}, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Page{URL: rawURL}, err
	}
	defer resp.Body.Close()

	page := models.Page{URL: rawURL, Status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, fmt.Errorf("http status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if !strings.HasPrefix(mediaType, "text/") && !strings.Contains(mediaType, "html") {
			return page, fmt.Errorf("unsupported content type %q", mediaType)
		}
	}

	var body io.Reader = resp.Body
	if f.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return page, fmt.Errorf("read body: %w", err)
	}

	parsed, err := Parse(string(raw), rawURL)
	parsed.Status = resp.StatusCode
	parsed.RenderMS = int(time.Since(t0) / time.Millisecond)
	return parsed, err
}

// Parse extracts readable text from html. When readability finds no article
// the visible body text is used instead.
func Parse(html, rawURL string) (models.Page, error) {
	sum := sha1.Sum([]byte(html))
	page := models.Page{URL: rawURL, HTMLHash: hex.EncodeToString(sum[:])}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		pageURL = &url.URL{}
	}
	article, err := goreadability.FromReader(strings.NewReader(html), pageURL)
	if err == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Byline = strings.TrimSpace(article.Byline)
		page.Text = collapseSpace(article.TextContent)
	}
	if page.Text == "" {
		title, text, qerr := bodyText(html)
		if qerr != nil {
			return page, qerr
		}
		if page.Title == "" {
			page.Title = title
		}
		page.Text = text
	}
	if page.Text == "" {
		return page, ErrNoText
	}
	return page, nil
}

func bodyText(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer, header").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return title, collapseSpace(doc.Find("body").Text()), nil
}

// collapseSpace trims every line and drops blank runs.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
