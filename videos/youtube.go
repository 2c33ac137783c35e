// Package videos searches educational videos for the study assistant.
package videos

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	DefaultMaxResults = 10
	MaxResultsLimit   = 25
)

// ErrQuotaExceeded is returned when the YouTube API refuses the request for quota reasons.
var ErrQuotaExceeded = errors.New("youtube quota exceeded")

// Video is one search hit.
type Video struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Searcher finds videos for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int64) ([]Video, error)
}

// YouTubeSearcher implements Searcher with the YouTube Data API v3.
type YouTubeSearcher struct {
	service *youtube.Service
}

var _ Searcher = (*YouTubeSearcher)(nil)

// NewYouTubeSearcher creates a searcher. Extra client options are appended
// after the API key.
func NewYouTubeSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeSearcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &YouTubeSearcher{service: service}, nil
}

// ClampMaxResults keeps n within what the API accepts.
func ClampMaxResults(n int64) int64 {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsLimit:
		return MaxResultsLimit
	default:
		return n
	}
}

// Search runs a safe-search video query.
func (y *YouTubeSearcher) Search(ctx context.Context, query string, maxResults int64) ([]Video, error) {
	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		SafeSearch("strict").
		MaxResults(ClampMaxResults(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 403 {
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, Video{
			VideoID:      item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
		})
	}
	return videos, nil
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Medium, t.High, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}
