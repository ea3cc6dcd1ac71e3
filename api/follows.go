package api

import (
	"fmt"

	"github.com/earshot-audio/earshot/models"
)

const followingEndpoint = "/following"

type followPayload struct {
	FeedID     int64 `json:"feed_id"`
	Interested bool  `json:"is_interested"`
}

func (c *Client) LoadFollows() ([]models.Follow, error) {
	var page models.Page[models.Follow]
	if err := c.get(followingEndpoint, nil, "following.results", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// FollowShow registers interest in a show. Interested=false blocks the
// show instead, which is its own kind of signal rather than a removal.
func (c *Client) FollowShow(feedID int64, interested bool) (models.Follow, error) {
	var follow models.Follow
	err := c.post(followingEndpoint, followPayload{FeedID: feedID, Interested: interested}, "following", &follow)
	return follow, err
}

func (c *Client) UnfollowShow(followID int64) error {
	return c.delete(fmt.Sprintf("%s/%d", followingEndpoint, followID))
}
