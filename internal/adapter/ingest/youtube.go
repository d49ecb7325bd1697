package ingest

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lecturmate/internal/domain"
)

// YouTube fetches a video's caption track through the timedtext endpoint and
// flattens it into plain prose: timestamps dropped, segments joined by
// spaces, whitespace collapsed.
type YouTube struct {
	baseURL string
	lang    string
	http    *http.Client
}

func NewYouTube() *YouTube {
	return &YouTube{
		baseURL: "https://video.google.com/timedtext",
		lang:    "en",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (y *YouTube) Kind() domain.SourceKind { return domain.SourceYouTube }

type timedText struct {
	Texts []timedTextSegment `xml:"text"`
}

type timedTextSegment struct {
	Start   string `xml:"start,attr"`
	Dur     string `xml:"dur,attr"`
	Content string `xml:",chardata"`
}

func (y *YouTube) Ingest(rawURL string) (string, error) {
	videoID, err := VideoID(rawURL)
	if err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s?lang=%s&v=%s", y.baseURL, url.QueryEscape(y.lang), url.QueryEscape(videoID))
	resp, err := y.http.Get(reqURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch transcript for %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript fetch for %s returned status %d", videoID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}

	var transcript timedText
	if err := xml.Unmarshal(body, &transcript); err != nil {
		return "", fmt.Errorf("failed to parse transcript for %s: %w", videoID, err)
	}
	if len(transcript.Texts) == 0 {
		return "", fmt.Errorf("no transcript available for video %s", videoID)
	}

	segments := make([]string, 0, len(transcript.Texts))
	for _, seg := range transcript.Texts {
		// Caption text arrives double-escaped (&amp;#39; and friends).
		segments = append(segments, html.UnescapeString(seg.Content))
	}
	return collapseWhitespace(strings.Join(segments, " ")), nil
}

// VideoID extracts the 11-character video ID from the URL shapes users
// paste: watch URLs, youtu.be short links, or a bare ID.
func VideoID(raw string) (string, error) {
	var id string
	switch {
	case strings.Contains(raw, "watch?v="):
		id = strings.SplitN(strings.SplitN(raw, "watch?v=", 2)[1], "&", 2)[0]
	case strings.Contains(raw, "youtu.be/"):
		id = strings.SplitN(strings.SplitN(raw, "youtu.be/", 2)[1], "?", 2)[0]
	case !strings.ContainsAny(raw, "/?&= ") && raw != "":
		id = raw
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID from URL: %s", raw)
	}
	return id, nil
}
