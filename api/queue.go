package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/earshot-audio/earshot/models"
)

const (
	queueEndpoint      = "/queue"
	historyEndpoint    = "/history"
	feedSearchEndpoint = "/feed"
)

// LoadQueue fetches the next page of not-yet-seen clips. The exclude
// list is the caller's seen-id set; categoryID narrows the queue to one
// topic when non-nil.
func (c *Client) LoadQueue(excludeIDs []int64, categoryID *int64) ([]models.Clip, error) {
	query := url.Values{}
	if len(excludeIDs) > 0 {
		ids := make([]string, 0, len(excludeIDs))
		for _, id := range excludeIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		query.Set("exclude_clip_ids", strings.Join(ids, ","))
	}
	if categoryID != nil {
		query.Set("topic_ids", strconv.FormatInt(*categoryID, 10))
	}

	var page models.Page[models.Clip]
	if err := c.get(queueEndpoint, query, "queue.results", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// LoadHistory returns previously viewed clips, oldest first, so they
// can sit in front of the fresh queue.
func (c *Client) LoadHistory() ([]models.ClipView, error) {
	var page models.Page[models.ClipView]
	if err := c.get(historyEndpoint, nil, "history.results", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) SearchShows(search string) ([]models.Show, error) {
	query := url.Values{}
	query.Set("search", search)

	var page models.Page[models.Show]
	if err := c.get(feedSearchEndpoint, query, "feed.results", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}
